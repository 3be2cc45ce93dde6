package task

import "github.com/behrlich/taskd"

// Parse tokenizes a command line into pipe-separated Programs (spec
// §4.3). Whitespace separates tokens; single and double quotes quote
// literally (each permits the other quote inside); backslash outside
// single quotes escapes the next character; an unquoted `|` ends the
// current token and starts a new Program.
func Parse(commandLine string) ([]Program, error) {
	var programs []Program
	var current []string
	var token []byte
	inToken := false

	type quoteState int
	const (
		none quoteState = iota
		single
		double
	)
	state := none

	flushToken := func() {
		if inToken {
			current = append(current, string(token))
			token = nil
			inToken = false
		}
	}

	flushProgram := func() error {
		flushToken()
		if len(current) == 0 {
			return taskd.NewError("task.Parse", taskd.KindInvalidArgument, "empty program between pipes")
		}
		programs = append(programs, Program(current))
		current = nil
		return nil
	}

	runes := []rune(commandLine)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		switch state {
		case single:
			if c == '\'' {
				state = none
			} else {
				token = append(token, []byte(string(c))...)
			}
			continue
		case double:
			if c == '"' {
				state = none
				continue
			}
			if c == '\\' {
				i++
				if i >= len(runes) {
					return nil, taskd.NewError("task.Parse", taskd.KindInvalidArgument, "unterminated escape")
				}
				next := runes[i]
				switch next {
				case '\\', '"':
					token = append(token, []byte(string(next))...)
				default:
					token = append(token, '\\')
					token = append(token, []byte(string(next))...)
				}
				continue
			}
			token = append(token, []byte(string(c))...)
			continue
		}

		// state == none (unquoted)
		switch {
		case c == ' ' || c == '\t':
			flushToken()
		case c == '\'':
			state = single
			inToken = true
		case c == '"':
			state = double
			inToken = true
		case c == '\\':
			i++
			if i >= len(runes) {
				return nil, taskd.NewError("task.Parse", taskd.KindInvalidArgument, "unterminated escape")
			}
			next := runes[i]
			inToken = true
			switch next {
			case '\\', '"', ' ':
				token = append(token, []byte(string(next))...)
			default:
				token = append(token, '\\')
				token = append(token, []byte(string(next))...)
			}
		case c == '|':
			if err := flushProgram(); err != nil {
				return nil, err
			}
		default:
			inToken = true
			token = append(token, []byte(string(c))...)
		}
	}

	if state != none {
		return nil, taskd.NewError("task.Parse", taskd.KindInvalidArgument, "unterminated quote")
	}

	if err := flushProgram(); err != nil {
		return nil, err
	}

	return programs, nil
}
