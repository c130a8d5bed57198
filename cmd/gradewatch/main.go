package main

import (
	"context"

	"gradewatch/cmd/gradewatch/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
