package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gradewatch/internal/telemetry"
	"gradewatch/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const whatsappPrefix = "whatsapp:"

type TwilioOptions struct {
	ApiUrl     string
	AccountSid string
	AuthToken  string
	From       string
	To         string
}

// TwilioSender sends WhatsApp messages through the Twilio Messages API.
type TwilioSender struct {
	http    *resty.Client
	opts    TwilioOptions
	limiter *rate.Limiter
	tel     telemetry.API
}

type twilioMessage struct {
	Sid    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func whatsappAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, whatsappPrefix) {
		return number
	}
	return whatsappPrefix + number
}

func NewTwilioSender(opts TwilioOptions, tel telemetry.API) *TwilioSender {
	if opts.ApiUrl == "" {
		opts.ApiUrl = "https://api.twilio.com"
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.ApiUrl, "/"))
	client.SetBasicAuth(opts.AccountSid, opts.AuthToken)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("accept", "application/json")
	restyutil.InstrumentClient(client, "twilio")

	return &TwilioSender{
		http: client,
		opts: opts,
		// one message per second is the whatsapp sandbox limit
		limiter: rate.NewLimiter(1, 1),
		tel:     telemetry.NewScopedAPI("twilio", tel),
	}
}

func (s *TwilioSender) Name() string {
	return "twilio"
}

func (s *TwilioSender) Send(ctx context.Context, message string) error {
	err := s.limiter.Wait(ctx)
	if err != nil {
		return err
	}

	res, err := s.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"From": whatsappAddress(s.opts.From),
			"To":   whatsappAddress(s.opts.To),
			"Body": message,
		}).
		SetResult(&twilioMessage{}).
		SetError(&twilioError{}).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", url.PathEscape(s.opts.AccountSid)))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	if res.IsError() {
		apiErr, ok := res.Error().(*twilioError)
		if ok && apiErr.Message != "" {
			return fmt.Errorf("status %d: %s (code %d)", res.StatusCode(), apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("status %d: %s", res.StatusCode(), strings.TrimSpace(res.String()))
	}

	if msg, ok := res.Result().(*twilioMessage); ok {
		s.tel.ReportDebug("message accepted", "sid", msg.Sid, "status", msg.Status)
	}
	return nil
}
