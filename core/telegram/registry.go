package telegram

import (
	"cmp"
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/m3rciful/catalogbot/core/logger"
	"github.com/m3rciful/catalogbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry holds slash commands. Callback tokens are routed by the action
// router, not registered here.
type Registry struct {
	commands map[string]commands.Command
	aliases  map[string]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: map[string]commands.Command{},
		aliases:  map[string]string{},
	}
}

func slash(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}

// RegisterCommand adds cmd under name, which must start with "/". Invalid
// and duplicate registrations are logged and ignored.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	skip := func(reason string) {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", reason),
		)
	}
	switch {
	case r == nil || cmd.Handler == nil || cmd.Description == "":
		skip("invalid")
		return
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		skip("no_slash_prefix")
		return
	}
	if _, taken := r.resolve(name); taken {
		skip("duplicate")
		return
	}
	r.commands[name] = cmd
	for _, a := range cmd.Aliases {
		if a = slash(a); a != name {
			r.aliases[a] = name
		}
	}
}

func (r *Registry) resolve(name string) (string, bool) {
	if _, ok := r.commands[name]; ok {
		return name, true
	}
	key, ok := r.aliases[name]
	return key, ok
}

// ListCommands returns the commands sorted by name. publicOnly drops hidden
// and staff-only ones.
func (r *Registry) ListCommands(publicOnly bool) []tele.Command {
	var list []tele.Command
	for _, name := range slices.Sorted(maps.Keys(r.commands)) {
		meta := r.commands[name]
		if meta.Hidden || (publicOnly && meta.StaffOnly) {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: meta.Description})
	}
	return list
}

// LookupCommand resolves name or one of its aliases, with or without the
// leading slash, and returns the canonical name.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	key, ok := r.resolve(slash(name))
	if !ok {
		return "", commands.Command{}, false
	}
	return key, r.commands[key], true
}

// Commands returns all registered commands keyed by canonical name.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// InitBotCommands publishes the command menu: public commands for everyone
// and the full list in each staff chat.
func InitBotCommands(bot *tele.Bot, reg *Registry, staffChats []int64) {
	publish := func(cmds []tele.Command, scope tele.CommandScope) {
		if err := bot.SetCommands(cmds, scope); err != nil {
			logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
				slog.String("scope", cmp.Or(scope.Type, tele.CommandScopeDefault)),
				slog.Int64("chat_id", scope.ChatID),
				slog.String("err", err.Error()),
			)
		}
	}
	publish(reg.ListCommands(true), tele.CommandScope{Type: tele.CommandScopeDefault})
	full := reg.ListCommands(false)
	for _, id := range staffChats {
		publish(full, tele.CommandScope{Type: tele.CommandScopeChat, ChatID: id})
	}
}
