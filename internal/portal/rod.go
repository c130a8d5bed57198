package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"gradewatch/internal/assert"
	"gradewatch/internal/telemetry"
	"gradewatch/lib/htmlutil"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_session_launch      = "session.launch"
	report_session_login       = "session.login"
	report_session_find_course = "session.find-course"
	report_session_read_cell   = "session.read-cell"
	report_session_close       = "session.close"
)

var tracer = telemetry.Tracer("gradewatch/internal/portal")

// login form selectors
const (
	loginEntrySelector    = "#B"
	usernameSelector      = "#txtUsuario"
	domainSelector        = "#txtDominios"
	passwordSelector      = "#pwdClave"
	loginSubmitSelector   = "#btnEnviar"
	selectDomainByIndexJs = `(i) => {
		if (i < 0 || i >= this.options.length) {
			throw new Error("domain option " + i + " out of range (" + this.options.length + " options)")
		}
		this.selectedIndex = i
		this.dispatchEvent(new Event("change", { bubbles: true }))
	}`
)

type RodOptions struct {
	// BaseUrl is the login page of the portal.
	BaseUrl string
	// DomainIndex is the option index of the login domain dropdown.
	DomainIndex int
	// Timeout bounds every individual wait on the page.
	Timeout time.Duration

	// RemoteUrl is the devtools websocket of an already running chrome,
	// when empty a local chrome is launched for every session.
	RemoteUrl string
	// Bin overrides the chrome binary used by the launcher.
	Bin string
	// Headful shows the browser window, useful while debugging selectors.
	Headful bool
}

// RodDriver drives the portal with a real (stealth patched) chrome through
// the devtools protocol.
type RodDriver struct {
	opts RodOptions
	tel  telemetry.API
}

func NewRodDriver(opts RodOptions, tel telemetry.API) RodDriver {
	assert.NotNil(tel, "telemetry")
	assert.NotEmptyStr(opts.BaseUrl, "portal base url")
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return RodDriver{
		opts: opts,
		tel:  telemetry.NewScopedAPI("portal", tel),
	}
}

func (d RodDriver) Authenticate(ctx context.Context, creds Credentials) (Session, error) {
	ctx, span := tracer.Start(ctx, "portal:Authenticate")
	defer span.End()

	s, err := d.open(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.tel.ReportBroken(report_session_launch, err)
		return nil, err
	}

	err = s.login(ctx, creds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.tel.ReportBroken(report_session_login, err)
		if closeErr := s.Close(); closeErr != nil {
			d.tel.ReportWarning(report_session_close, closeErr)
		}
		return nil, err
	}

	return s, nil
}

func (d RodDriver) open(ctx context.Context) (*rodSession, error) {
	// the devtools websocket lives until this context is cancelled, Close
	// cancels it so no connection outlives its session.
	connCtx, cancel := context.WithCancel(ctx)
	s := &rodSession{opts: d.opts, tel: d.tel, cancel: cancel}

	wsUrl := d.opts.RemoteUrl
	if wsUrl == "" {
		l := launcher.New().
			Context(ctx).
			Headless(!d.opts.Headful).
			NoSandbox(true).
			Set("disable-dev-shm-usage").
			Set("disable-blink-features", "AutomationControlled")
		if d.opts.Bin != "" {
			l = l.Bin(d.opts.Bin)
		}

		u, err := l.Launch()
		if err != nil {
			l.Kill()
			cancel()
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		wsUrl = u
		s.launcher = l
		d.tel.ReportDebug("launched local chrome", "url", wsUrl, "headful", d.opts.Headful)
	} else {
		d.tel.ReportDebug("connecting to remote chrome", "url", wsUrl)
	}

	ws := &cdp.WebSocket{}
	err := ws.Connect(connCtx, wsUrl, nil)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	s.ws = ws

	s.browser = rod.New().Client(cdp.New().Start(ws)).Context(connCtx)
	err = s.browser.Connect()
	if err != nil {
		s.browser = nil
		s.Close()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := stealth.Page(s.browser)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	s.page = page

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  1280,
		Height: 720,
	})
	if err != nil {
		d.tel.ReportWarning(report_session_launch, fmt.Errorf("set viewport: %w", err))
	}

	return s, nil
}

type rodSession struct {
	opts     RodOptions
	tel      telemetry.API
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	ws       *cdp.WebSocket
	cancel   context.CancelFunc
	closed   bool
}

// step runs fn with the page bound to a context that expires after the
// configured timeout, so every element wait inside fn shares one budget.
func (s *rodSession) step(ctx context.Context, name string, fn func(p *rod.Page) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	err := fn(s.page.Context(stepCtx))
	if err == nil {
		s.tel.ReportDebug("step done", "step", name)
		return nil
	}

	return classify(ctx, name, s.opts.Timeout, err)
}

// classify maps a failed step onto the portal sentinels. ctx is the parent
// of the step context, its cancellation wins over the step deadline.
func classify(ctx context.Context, name string, timeout time.Duration, err error) error {
	var notFound *rod.ElementNotFoundError
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", name, ctx.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, name)
	case errors.As(err, &notFound):
		return fmt.Errorf("%w: %s: %v", ErrMissingElement, name, err)
	}
	return fmt.Errorf("%s: %w", name, err)
}

// loginError turns a course list that never showed up into ErrAuth.
func loginError(err error) error {
	if errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%w: course list did not show up after login: %v", ErrAuth, err)
	}
	return err
}

func click(el *rod.Element) error {
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (s *rodSession) login(ctx context.Context, creds Credentials) error {
	err := s.step(ctx, "open login page", func(p *rod.Page) error {
		err := p.Navigate(s.opts.BaseUrl)
		if err != nil {
			return err
		}
		err = p.WaitLoad()
		if err != nil {
			return err
		}
		entry, err := p.Element(loginEntrySelector)
		if err != nil {
			return err
		}
		return click(entry)
	})
	if err != nil {
		return err
	}

	err = s.step(ctx, "fill login form", func(p *rod.Page) error {
		username, err := p.Element(usernameSelector)
		if err != nil {
			return err
		}
		err = username.Input(creds.Username)
		if err != nil {
			return err
		}

		domain, err := p.Element(domainSelector)
		if err != nil {
			return err
		}
		_, err = domain.Eval(selectDomainByIndexJs, s.opts.DomainIndex)
		if err != nil {
			return fmt.Errorf("select domain: %w", err)
		}

		password, err := p.Element(passwordSelector)
		if err != nil {
			return err
		}
		err = password.Input(creds.Password)
		if err != nil {
			return err
		}

		submit, err := p.Element(loginSubmitSelector)
		if err != nil {
			return err
		}
		return click(submit)
	})
	if err != nil {
		return err
	}

	// a successful login lands on the course list, anything else (the login
	// form with an error banner, a password change page) is a failed login.
	err = s.step(ctx, "wait for course list", func(p *rod.Page) error {
		_, err := p.Element(courseItemSelector)
		return err
	})
	return loginError(err)
}

func (s *rodSession) FindCourse(ctx context.Context, name string) (CourseRef, error) {
	ctx, span := tracer.Start(ctx, "portal:FindCourse")
	defer span.End()
	span.SetAttributes(attribute.String("course", name))

	var contents string
	err := s.step(ctx, "read course list", func(p *rod.Page) error {
		_, err := p.Element(courseItemSelector)
		if err != nil {
			return err
		}
		contents, err = p.HTML()
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.tel.ReportBroken(report_session_find_course, err)
		return CourseRef{}, err
	}

	doc, err := htmlutil.ParseFragment(contents)
	if err != nil {
		s.tel.ReportBroken(report_session_find_course, fmt.Errorf("parse course list: %w", err))
		return CourseRef{}, err
	}

	course, err := findCourse(doc, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.tel.ReportWarning(report_session_find_course, err)
		return CourseRef{}, err
	}
	s.tel.ReportDebug("found course", "id", course.ID, "label", course.Label)
	return course, nil
}

func (s *rodSession) ReadGradeCell(ctx context.Context, course CourseRef, column int) (string, string, error) {
	ctx, span := tracer.Start(ctx, "portal:ReadGradeCell")
	defer span.End()
	span.SetAttributes(
		attribute.String("course_id", course.ID),
		attribute.Int("column", column),
	)

	fail := func(err error) (string, string, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.tel.ReportBroken(report_session_read_cell, err)
		return "", "", err
	}

	if column < 1 {
		return fail(fmt.Errorf("%w: column must be >= 1, got %d", ErrMissingElement, column))
	}
	if course.ID == "" {
		return fail(fmt.Errorf("%w: empty course reference", ErrMissingElement))
	}

	// the tool icons of a course entry are only rendered while hovered.
	err := s.step(ctx, "open grade table", func(p *rod.Page) error {
		entry, err := p.Element("#" + course.ID)
		if err != nil {
			return err
		}
		err = entry.ScrollIntoView()
		if err != nil {
			return err
		}
		err = entry.Hover()
		if err != nil {
			return err
		}
		tool, err := p.Element(toolSelector(course.ID))
		if err != nil {
			return err
		}
		err = tool.WaitVisible()
		if err != nil {
			return err
		}
		return click(tool)
	})
	if err != nil {
		return fail(err)
	}

	table := tableId(course.ID)
	var contents string
	err = s.step(ctx, "read grade table", func(p *rod.Page) error {
		_, err := p.Element(cellSelector(table, column))
		if err != nil {
			return err
		}
		el, err := p.Element("#" + table)
		if err != nil {
			return err
		}
		contents, err = el.HTML()
		return err
	})
	if err != nil {
		return fail(err)
	}

	doc, err := htmlutil.ParseFragment(contents)
	if err != nil {
		return fail(fmt.Errorf("parse grade table: %w", err))
	}
	header, cell, err := readTable(doc, table, column)
	if err != nil {
		return fail(err)
	}
	return header, cell, nil
}

// Close releases the page, the devtools connection and (for locally
// launched chrome) the process and its profile dir. It is idempotent.
func (s *rodSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		defer s.cancel()
	}

	var errs []error
	if s.launcher == nil {
		// a remote chrome outlives the session, only the tab and the
		// connection are ours.
		if s.page != nil {
			errs = append(errs, s.page.Close())
		}
		errs = append(errs, s.disconnect())
		return errors.Join(errs...)
	}

	if s.browser != nil {
		errs = append(errs, s.browser.Close())
	}
	errs = append(errs, s.disconnect())
	// Cleanup waits for the process to exit, Kill makes sure it does even
	// when the devtools connection is already gone.
	s.launcher.Kill()
	s.launcher.Cleanup()
	return errors.Join(errs...)
}

func (s *rodSession) disconnect() error {
	if s.ws == nil {
		return nil
	}
	err := s.ws.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
