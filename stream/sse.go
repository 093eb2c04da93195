// ABOUTME: Server-Sent Events parser for the generation backend's streaming protocol.
// ABOUTME: Reads from an io.Reader and yields events per the W3C EventSource wire format.
package stream

import (
	"bufio"
	"io"
	"strings"
)

// RawEvent is a single SSE frame before protocol decoding.
type RawEvent struct {
	Type string // from "event:" lines, defaults to "message"
	Data string // from "data:" lines, joined with newlines
}

// Parser reads SSE frames from an io.Reader. It handles CR, LF, and CRLF
// line endings; bufio.Scanner only handles LF and CRLF natively.
type Parser struct {
	reader *bufio.Reader
	done   bool

	eventType string
	dataLines []string
	hasData   bool
}

// NewParser creates an SSE parser reading from r.
func NewParser(r io.Reader) *Parser {
	return &Parser{reader: bufio.NewReaderSize(r, 4096)}
}

// Next returns the next SSE frame, or io.EOF when the stream ends.
// A pending partial frame at EOF is dispatched before EOF is reported.
func (p *Parser) Next() (RawEvent, error) {
	if p.done {
		return RawEvent{}, io.EOF
	}

	for {
		line, err := p.readLine()
		if err != nil {
			if err == io.EOF {
				p.done = true
				if p.hasData {
					return p.dispatch(), nil
				}
				return RawEvent{}, io.EOF
			}
			return RawEvent{}, err
		}

		// Blank line dispatches the accumulated frame.
		if line == "" {
			if !p.hasData {
				continue
			}
			return p.dispatch(), nil
		}

		// Comment lines start with ':'.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			p.eventType = value
		case "data":
			p.dataLines = append(p.dataLines, value)
			p.hasData = true
		default:
			// id, retry, and unknown fields are ignored; the generation
			// protocol does not use them.
		}
	}
}

// dispatch builds the accumulated frame and resets parser state.
func (p *Parser) dispatch() RawEvent {
	typ := p.eventType
	if typ == "" {
		typ = "message"
	}
	evt := RawEvent{Type: typ, Data: strings.Join(p.dataLines, "\n")}
	p.eventType = ""
	p.dataLines = nil
	p.hasData = false
	return evt
}

// splitField splits an SSE line at the first colon, stripping one leading
// space from the value. A line with no colon is a bare field name.
func splitField(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx == -1 {
		return line, ""
	}
	field, value = line[:idx], line[idx+1:]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return field, value
}

// readLine reads one line, treating CR, LF, and CRLF as terminators.
func (p *Parser) readLine() (string, error) {
	var line strings.Builder
	for {
		b, err := p.reader.ReadByte()
		if err != nil {
			if err == io.EOF && line.Len() > 0 {
				return line.String(), nil
			}
			return "", err
		}
		switch b {
		case '\n':
			return line.String(), nil
		case '\r':
			if next, err := p.reader.ReadByte(); err == nil && next != '\n' {
				_ = p.reader.UnreadByte()
			}
			return line.String(), nil
		default:
			line.WriteByte(b)
		}
	}
}
