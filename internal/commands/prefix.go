package commands

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/bwmarrin/discordgo"
)

// Prefixes mark a chat message as a command, e.g. ".files chunk" or "!merge".
var Prefixes = []string{".", "!"}

// Aliased is implemented by commands reachable under extra prefix names.
type Aliased interface {
	Aliases() []string
}

// UsageError reports prefix command arguments that do not fit the command.
type UsageError struct {
	Reason string
	Usage  string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s\nUsage: `%s`", e.Reason, e.Usage)
}

// ParseMessage turns a prefixed chat message into a Request. ok is false when
// content is not a prefix command this router knows, so ordinary chat and
// other bots' commands are left alone.
//
// Arguments bind to the command's options in order. A quoted argument may
// contain spaces, a string option with choices is only taken when the
// argument is one of them, and a trailing string option takes the rest of
// the line.
func (r *Router) ParseMessage(content string) (req Request, ok bool, err error) {
	body, found := cutPrefix(strings.TrimSpace(content))
	if !found {
		return Request{}, false, nil
	}
	name, args := nextArg(body)
	name = strings.ToLower(name)
	if canonical, isAlias := r.aliases[name]; isAlias {
		name = canonical
	}
	cmd, known := r.commands[name]
	if !known {
		return Request{}, false, nil
	}

	req = Request{Name: name, Strings: map[string]string{}, Ints: map[string]int64{}}
	if err := bindArgs(cmd.Definition(), args, &req); err != nil {
		return req, true, &UsageError{Reason: err.Error(), Usage: r.Usage(name)}
	}
	return req, true, nil
}

func cutPrefix(s string) (string, bool) {
	for _, p := range Prefixes {
		if rest, ok := strings.CutPrefix(s, p); ok && rest != "" && !unicode.IsSpace(rune(rest[0])) {
			return rest, true
		}
	}
	return "", false
}

func bindArgs(def *discordgo.ApplicationCommand, args string, req *Request) error {
	for i, opt := range def.Options {
		if strings.TrimSpace(args) == "" {
			if opt.Required {
				return fmt.Errorf("missing `%s`", opt.Name)
			}
			continue
		}

		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			if len(opt.Choices) == 0 && i == len(def.Options)-1 {
				req.Strings[opt.Name] = strings.TrimSpace(args)
				args = ""
				continue
			}
			arg, rest := nextArg(args)
			if len(opt.Choices) > 0 && !hasChoice(opt, arg) {
				if opt.Required {
					return fmt.Errorf("`%s` must be one of %s", opt.Name, choiceList(opt))
				}
				continue
			}
			req.Strings[opt.Name] = arg
			args = rest
		case discordgo.ApplicationCommandOptionInteger:
			arg, rest := nextArg(args)
			n, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("`%s` must be a number, got `%s`", opt.Name, arg)
			}
			req.Ints[opt.Name] = n
			args = rest
		default:
			return fmt.Errorf("option `%s` cannot be given as text", opt.Name)
		}
	}
	if rest := strings.TrimSpace(args); rest != "" {
		return fmt.Errorf("unexpected `%s`", rest)
	}
	return nil
}

// nextArg splits off the first whitespace-delimited or double-quoted
// argument.
func nextArg(s string) (arg, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if s == "" {
		return "", ""
	}
	if s[0] == '"' {
		if end := strings.IndexByte(s[1:], '"'); end >= 0 {
			return s[1 : end+1], s[end+2:]
		}
	}
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}

func hasChoice(opt *discordgo.ApplicationCommandOption, arg string) bool {
	for _, c := range opt.Choices {
		if strings.EqualFold(fmt.Sprint(c.Value), arg) {
			return true
		}
	}
	return false
}

func choiceList(opt *discordgo.ApplicationCommandOption) string {
	names := make([]string, 0, len(opt.Choices))
	for _, c := range opt.Choices {
		names = append(names, fmt.Sprintf("`%v`", c.Value))
	}
	return strings.Join(names, ", ")
}

// Usage renders a one-line synopsis of a command for prefix error replies.
func (r *Router) Usage(name string) string {
	cmd, ok := r.commands[name]
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(Prefixes[0] + name)
	for _, opt := range cmd.Definition().Options {
		if opt.Required {
			fmt.Fprintf(&b, " <%s>", opt.Name)
		} else {
			fmt.Fprintf(&b, " [%s]", opt.Name)
		}
	}
	return b.String()
}
