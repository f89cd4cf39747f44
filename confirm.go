package main

import (
	"fmt"
	"strings"

	"github.com/prassanna-ravishankar/worktrunk/internal/ui"
)

// confirmer answers the yes/no prompts the checkout and prune
// handlers ask, turning their Confirm/ConfirmHooks calls into a
// single rendered [ui.Confirm] field against the root view. Against a
// non-interactive view it reports [ui.ErrPrompt] rather than prompting.
type confirmer struct {
	view ui.View
}

var _ interface {
	ConfirmHooks(templates []string) (bool, error)
} = (*confirmer)(nil)

// ConfirmHooks implements internal/handler/checkout.Confirmer.
func (c *confirmer) ConfirmHooks(templates []string) (bool, error) {
	desc := fmt.Sprintf("New or changed hook command(s) need approval before they run:\n  %s",
		strings.Join(templates, "\n  "))
	return c.ask("Run these hooks?", desc)
}

// Confirm implements internal/handler/prune.Prompter.
func (c *confirmer) Confirm(title, desc string) (bool, error) {
	return c.ask(title, desc)
}

func (c *confirmer) ask(title, desc string) (bool, error) {
	iv, ok := c.view.(ui.InteractiveView)
	if !ok {
		return false, ui.ErrPrompt
	}

	var answer bool
	field := ui.NewConfirm().WithTitle(title).WithDescription(desc).WithValue(&answer)
	if err := iv.Prompt(field); err != nil {
		return false, err
	}
	return answer, nil
}
