package commands

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Type string

const (
	TypeAdd    Type = "add"
	TypeEdit   Type = "edit"
	TypeToggle Type = "toggle"
	TypeDelete Type = "delete"
	TypeFilter Type = "filter"
	TypeSearch Type = "search"
)

var aliases = map[string]Type{
	"new":    TypeAdd,
	"done":   TypeToggle,
	"rm":     TypeDelete,
	"del":    TypeDelete,
	"find":   TypeSearch,
	"show":   TypeFilter,
	"toggle": TypeToggle,
}

type ErrorCode string

const (
	ErrCodeEmptyInput           ErrorCode = "empty_input"
	ErrCodeUnknownCommand       ErrorCode = "unknown_command"
	ErrCodeInvalidArgument      ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing       ErrorCode = "handler_missing"
	ErrCodeNotFound             ErrorCode = "not_found"
	ErrCodeConfirmationRequired ErrorCode = "confirmation_required"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AddArgs keeps the date and priority as typed; the controller resolves them.
type AddArgs struct {
	Title    string
	Desc     string
	Due      string
	Priority string
}

// EditArgs carries only the fields the user supplied.
type EditArgs struct {
	ID       int64
	Title    *string
	Desc     *string
	Due      *string
	Priority *string
}

func (a EditArgs) IsEmpty() bool {
	return a.Title == nil && a.Desc == nil && a.Due == nil && a.Priority == nil
}

type ToggleArgs struct {
	ID int64
}

type DeleteArgs struct {
	ID        int64
	Confirmed bool
}

type FilterArgs struct {
	Mode string
}

type SearchArgs struct {
	Query string
}

type Command struct {
	Type   Type
	Raw    string
	Add    *AddArgs
	Edit   *EditArgs
	Toggle *ToggleArgs
	Delete *DeleteArgs
	Filter *FilterArgs
	Search *SearchArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if strings.HasPrefix(raw, ":") || strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(raw[1:])
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	typ := Type(head)
	if alias, ok := aliases[head]; ok {
		typ = alias
	}
	switch typ {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeEdit:
		return parseEdit(input, args)
	case TypeToggle:
		return parseToggle(input, args)
	case TypeDelete:
		return parseDelete(input, args)
	case TypeFilter:
		return parseFilter(input, args)
	case TypeSearch:
		return Command{Type: TypeSearch, Raw: input, Search: &SearchArgs{Query: remainder(input)}}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

// remainder is everything after the command word and the one separator that
// follows it, spacing kept as typed.
func remainder(input string) string {
	s := strings.TrimLeftFunc(input, unicode.IsSpace)
	if strings.HasPrefix(s, ":") || strings.HasPrefix(s, "/") {
		s = strings.TrimLeftFunc(s[1:], unicode.IsSpace)
	}
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return s[i+size:]
}

// fields is the shared grammar of add and edit:
// words [due:<date>] [!high|!normal] [-- description...]
type fields struct {
	words    []string
	due      *string
	priority *string
	desc     *string
}

func splitFields(args []string) fields {
	var out fields
	for i, arg := range args {
		if arg == "--" {
			desc := strings.Join(args[i+1:], " ")
			out.desc = &desc
			break
		}
		lower := strings.ToLower(arg)
		switch {
		case strings.HasPrefix(lower, "due:"):
			due := arg[len("due:"):]
			out.due = &due
		case lower == "!high" || lower == "!normal":
			p := lower[1:]
			out.priority = &p
		default:
			out.words = append(out.words, arg)
		}
	}
	return out
}

func parseAdd(raw string, args []string) (Command, error) {
	f := splitFields(args)
	title := strings.TrimSpace(strings.Join(f.words, " "))
	if title == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a title"}
	}
	if f.due == nil || strings.TrimSpace(*f.due) == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires due:<date>"}
	}
	a := AddArgs{Title: title, Due: *f.due}
	if f.priority != nil {
		a.Priority = *f.priority
	}
	if f.desc != nil {
		a.Desc = *f.desc
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &a}, nil
}

func parseEdit(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "edit requires a task id"}
	}
	id, err := ParseID(args[0])
	if err != nil {
		return Command{}, err
	}
	f := splitFields(args[1:])
	e := EditArgs{ID: id, Due: f.due, Priority: f.priority, Desc: f.desc}
	if title := strings.TrimSpace(strings.Join(f.words, " ")); title != "" {
		e.Title = &title
	}
	if e.IsEmpty() {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "edit needs at least one field to change"}
	}
	return Command{Type: TypeEdit, Raw: raw, Edit: &e}, nil
}

func parseToggle(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "toggle requires exactly one task id"}
	}
	id, err := ParseID(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeToggle, Raw: raw, Toggle: &ToggleArgs{ID: id}}, nil
}

func parseDelete(raw string, args []string) (Command, error) {
	if len(args) == 0 || len(args) > 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "delete requires a task id"}
	}
	id, err := ParseID(args[0])
	if err != nil {
		return Command{}, err
	}
	d := DeleteArgs{ID: id}
	if len(args) == 2 {
		switch strings.ToLower(args[1]) {
		case "yes", "-y", "--yes", "!":
			d.Confirmed = true
		default:
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unexpected argument %q", args[1])}
		}
	}
	return Command{Type: TypeDelete, Raw: raw, Delete: &d}, nil
}

func parseFilter(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "filter requires one of all, high, completed"}
	}
	mode := strings.ToLower(args[0])
	switch mode {
	case "all", "high", "completed":
	default:
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown filter %q", args[0])}
	}
	return Command{Type: TypeFilter, Raw: raw, Filter: &FilterArgs{Mode: mode}}, nil
}

// ParseID accepts a positive task id, optionally prefixed with "#".
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid task id %q", raw)}
	}
	return id, nil
}
