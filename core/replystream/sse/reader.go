package sse

import (
	"bufio"
	"io"
	"strings"
)

// event is one Server-Sent Event as read off the wire.
type event struct {
	Name string
	Data string
}

// reader decodes Server-Sent Events from a stream.
type reader struct {
	scanner *bufio.Reader
}

func newReader(r io.Reader) *reader {
	return &reader{scanner: bufio.NewReader(r)}
}

// next reads the next event. io.EOF signals a cleanly ended stream.
func (r *reader) next() (*event, error) {
	ev := &event{Name: "message"}
	var dataLines []string

	for {
		line, err := r.scanner.ReadString('\n')
		if err != nil {
			if err == io.EOF && len(dataLines) > 0 {
				ev.Data = strings.Join(dataLines, "\n")
				return ev, nil
			}
			return nil, err
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")

		// Blank line terminates the event.
		if line == "" {
			if len(dataLines) > 0 {
				ev.Data = strings.Join(dataLines, "\n")
				return ev, nil
			}
			continue
		}

		// Comment line.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if !found {
			field = line
			value = ""
		}
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			ev.Name = value
		case "data":
			dataLines = append(dataLines, value)
		}
	}
}
