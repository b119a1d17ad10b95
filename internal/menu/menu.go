// Package menu routes action tokens and continuation replies to the client
// storefront and the staff panel. Every screen is rendered through the
// scoped screen manager; every staff action is gated by the permission
// resolver before it reads or mutates anything.
package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/catalogbot/core/logger"
	"github.com/m3rciful/catalogbot/core/metrics"
	"github.com/m3rciful/catalogbot/core/telegram/callbacks"
	"github.com/m3rciful/catalogbot/core/telegram/keyboard"
	"github.com/m3rciful/catalogbot/internal/access"
	"github.com/m3rciful/catalogbot/internal/input"
	"github.com/m3rciful/catalogbot/internal/screen"
	"github.com/m3rciful/catalogbot/internal/store"
	"github.com/m3rciful/catalogbot/internal/transfer"
)

var (
	// ErrUnknownAction reports a token no rule matches.
	ErrUnknownAction = errors.New("menu: unknown action")
	// ErrDenied reports an action the actor may not perform.
	ErrDenied = errors.New("menu: denied")
)

// Request identifies who pressed a button and where.
type Request struct {
	Chat int64
	User int64
}

type gateKind uint8

const (
	gateNone gateKind = iota
	gateStaff
	gateCapability
	gateOwner
)

type gate struct {
	kind       gateKind
	capability access.Capability
}

var (
	open      = gate{kind: gateNone}
	staff     = gate{kind: gateStaff}
	ownerOnly = gate{kind: gateOwner}
)

func can(c access.Capability) gate {
	return gate{kind: gateCapability, capability: c}
}

type action func(ctx context.Context, req Request, args callbacks.Args) error

type rule struct {
	gate gate
	run  action
}

// Deps are the collaborators of the menu.
type Deps struct {
	Store    *store.Store
	Access   *access.Resolver
	Screens  *screen.Manager
	Input    *input.Engine
	Transfer *transfer.Engine
	// UploadDir stages documents received from owners.
	UploadDir string
}

// Menu is the action router plus the screens and mutators behind it.
type Menu struct {
	st      *store.Store
	acc     *access.Resolver
	scr     *screen.Manager
	in      *input.Engine
	xfer    *transfer.Engine
	uploads string

	table callbacks.Table[rule]
	picks selections
	log   *slog.Logger
}

// New wires the rule table and the continuation handlers.
func New(d Deps) (*Menu, error) {
	if d.Store == nil || d.Access == nil || d.Screens == nil || d.Input == nil || d.Transfer == nil {
		return nil, fmt.Errorf("menu: incomplete dependencies")
	}
	if d.UploadDir == "" {
		d.UploadDir = "uploads"
	}
	m := &Menu{
		st:      d.Store,
		acc:     d.Access,
		scr:     d.Screens,
		in:      d.Input,
		xfer:    d.Transfer,
		uploads: d.UploadDir,
		log:     logger.Component("router"),
	}
	var errs []error
	on := func(p callbacks.Pattern, g gate, run action) {
		if _, err := m.table.Add(p.String(), rule{gate: g, run: run}); err != nil {
			errs = append(errs, err)
		}
	}
	m.clientRules(on)
	m.catalogRules(on)
	m.productRules(on)
	m.settingsRules(on)
	m.ownerRules(on)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	m.replies()
	return m, nil
}

// Patterns lists the registered token patterns in match order.
func (m *Menu) Patterns() []string { return m.table.Patterns() }

// Replies counts the continuation tags the menu answers.
func (m *Menu) Replies() int { return len(m.in.Tags()) }

// Route runs the action bound to token for the actor in req. Unknown
// tokens yield ErrUnknownAction and forbidden ones ErrDenied; neither
// touches the store or the chat.
func (m *Menu) Route(ctx context.Context, req Request, token string) error {
	r, p, args, ok := m.table.Lookup(token)
	if !ok {
		m.observe(ctx, domainLabel(callbacks.Domain(token)), "unknown", token)
		return fmt.Errorf("%w: %s", ErrUnknownAction, callbacks.Key(token))
	}
	domain := p.Domain()
	if !m.allowed(ctx, req.User, r.gate) {
		m.observe(ctx, domain, "denied", token)
		return fmt.Errorf("%w: %s", ErrDenied, callbacks.Key(token))
	}
	err := r.run(ctx, req, args)
	m.observe(ctx, domain, metrics.Outcome(err), token)
	return err
}

func (m *Menu) allowed(ctx context.Context, user int64, g gate) bool {
	switch g.kind {
	case gateNone:
		return true
	case gateStaff:
		return m.acc.IsStaff(ctx, user)
	case gateCapability:
		return m.acc.Can(ctx, user, g.capability)
	case gateOwner:
		return m.acc.IsOwner(user)
	}
	return false
}

func (m *Menu) observe(ctx context.Context, domain, outcome, token string) {
	metrics.Actions.WithLabelValues(domain, outcome).Inc()
	level := slog.LevelDebug
	if outcome == "fail" {
		level = slog.LevelWarn
	}
	m.log.Log(ctx, level, "action routed",
		slog.String("event", "menu.route"),
		slog.String("cb_key", callbacks.Key(token)),
		slog.String("outcome", outcome),
	)
}

func domainLabel(d string) string {
	switch d {
	case shopDomain, staffDomain:
		return d
	}
	return "other"
}

func (m *Menu) render(ctx context.Context, req Request, scope string, contents ...screen.Content) error {
	_, err := m.scr.Render(ctx, req.Chat, scope, contents...)
	return err
}

func (m *Menu) admin(ctx context.Context, req Request, text string, kb keyboard.Rows) error {
	return m.render(ctx, req, screen.Admin, screen.Text(text, kb))
}

// notice sends a message that belongs to no screen.
func (m *Menu) notice(ctx context.Context, req Request, text string) error {
	_, err := m.scr.Messenger().SendText(ctx, req.Chat, text, nil)
	return err
}

func back(text string, p callbacks.Pattern, args ...any) keyboard.Rows {
	var kb keyboard.Rows
	kb.Add(keyboard.Btn(text, p.MustFormat(args...)))
	return kb
}

func btn(text string, p callbacks.Pattern, args ...any) keyboard.InlineBtn {
	return keyboard.Btn(text, p.MustFormat(args...))
}

// pager appends the ◀/▶ row of page; prefix holds the token arguments
// preceding the page number.
func pager(kb *keyboard.Rows, pg Page, p callbacks.Pattern, prefix ...any) {
	var row []keyboard.InlineBtn
	if pg.Prev {
		row = append(row, btn("◀", p, append(prefix, pg.Index-1)...))
	}
	if pg.Next {
		row = append(row, btn("▶", p, append(prefix, pg.Index+1)...))
	}
	kb.Add(row...)
}

func page(args callbacks.Args, i int) int {
	n := args.Int(i)
	if n > int64(^uint32(0)>>1) {
		return int(^uint32(0) >> 1)
	}
	return int(n)
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func yesNo(b bool) string {
	if b {
		return "да"
	}
	return "нет"
}
