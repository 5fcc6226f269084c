package domain

import "strings"

// CommandKind classifies the outcome of interpreting one line of
// free text from the external channel.
type CommandKind int

const (
	// KindNoMatch means the line is not a board command and must be
	// silently ignored.
	KindNoMatch CommandKind = iota
	KindCreate
	KindDelete
	KindMove
	// KindUnknownColumn is a move whose target text matched no column
	// keyword. It is distinct from KindNoMatch so the channel adapter
	// can reply with the valid keywords.
	KindUnknownColumn
)

// Command is a typed board-mutation intent parsed from free text.
type Command struct {
	Kind     CommandKind
	Title    string
	Fragment string
	// TargetColumn is set only for KindMove.
	TargetColumn Column
	// RawColumn carries the unclassifiable right-hand text of a move,
	// lower-cased, for KindUnknownColumn.
	RawColumn string
}

// Column keyword sets checked in fixed priority order. Matching is
// permissive by design: the source is unstructured text from a chat
// channel, so "mark it as done please" still lands in done.
var columnKeywords = []struct {
	column   Column
	keywords []string
}{
	{ColumnDone, []string{"done", "completed", "finish", "finished"}},
	{ColumnInProgress, []string{"progress", "doing", "working", "process"}},
	{ColumnTodo, []string{"todo", "backlog", "start"}},
}

// ColumnKeywordHints lists every keyword the move grammar accepts, in
// classification priority order. The channel adapter uses it to build
// the help reply when a move names an unknown column.
func ColumnKeywordHints() []string {
	var out []string
	for _, set := range columnKeywords {
		out = append(out, set.keywords...)
	}
	return out
}

// Interpret parses one trimmed line of external-channel text into a
// board-mutation intent. It is a pure function; grammar:
//
//	task <title> | todo <title>         -> create
//	delete <fragment> | remove <fragment> -> delete
//	move <fragment> to <column words>   -> move
//
// Keywords are case-insensitive prefixes and may be followed by a
// colon. Anything else is KindNoMatch.
func Interpret(line string) Command {
	trimmed := strings.TrimSpace(line)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "task"), strings.HasPrefix(lower, "todo"):
		title := stripKeyword(trimmed, 4)
		if title == "" {
			return Command{Kind: KindNoMatch}
		}
		return Command{Kind: KindCreate, Title: title}
	case strings.HasPrefix(lower, "delete"), strings.HasPrefix(lower, "remove"):
		fragment := stripKeyword(trimmed, 6)
		if fragment == "" {
			return Command{Kind: KindNoMatch}
		}
		return Command{Kind: KindDelete, Fragment: fragment}
	case strings.HasPrefix(lower, "move"):
		rest := trimmed[4:]
		sep := strings.Index(rest, " to ")
		if sep < 0 {
			return Command{Kind: KindNoMatch}
		}
		fragment := stripKeyword(rest[:sep], 0)
		if fragment == "" {
			return Command{Kind: KindNoMatch}
		}
		target := strings.ToLower(strings.TrimSpace(rest[sep+4:]))
		for _, set := range columnKeywords {
			for _, kw := range set.keywords {
				if strings.Contains(target, kw) {
					return Command{Kind: KindMove, Fragment: fragment, TargetColumn: set.column}
				}
			}
		}
		return Command{Kind: KindUnknownColumn, Fragment: fragment, RawColumn: target}
	}
	return Command{Kind: KindNoMatch}
}

// stripKeyword drops the leading n keyword bytes plus an optional colon
// and surrounding whitespace.
func stripKeyword(s string, n int) string {
	s = strings.TrimSpace(s[n:])
	s = strings.TrimPrefix(s, ":")
	return strings.TrimSpace(s)
}
