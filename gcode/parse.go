package gcode

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Parser reads blocks from G-code text. Comments, blank lines and tape
// markers ('%') are skipped.
type Parser struct{ br *bufio.Reader }

func NewParser(r io.Reader) *Parser {
	if br, ok := r.(*bufio.Reader); ok {
		return &Parser{br: br}
	}

	return &Parser{br: bufio.NewReader(r)}
}

var (
	rx        = regexp.MustCompile(`^([A-Z][0-9.\-]+)+$`)
	rxSplit   = regexp.MustCompile(`[A-Z][0-9.\-]+`)
	rxComment = regexp.MustCompile(`\([^)]*\)`)
)

// ParseLine parses a single line. An empty block and no error is returned
// for lines with nothing to execute.
func ParseLine(s string) (Block, error) {
	s = strings.SplitN(s, ";", 2)[0]
	s = rxComment.ReplaceAllString(s, "")
	s = strings.Replace(s, " ", "", -1)
	s = strings.TrimSpace(s)
	s = strings.ToUpper(s)

	if s == "" || s == "%" {
		return nil, nil
	}
	if !rx.MatchString(s) {
		return nil, fmt.Errorf("invalid or unhandled line: %s", s)
	}

	codes := rxSplit.FindAllString(s, -1)
	res := make(Block, len(codes))
	for i, c := range codes {
		_, err := fmt.Sscanf(c, "%c%f", &res[i].W, &res[i].Arg)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (p *Parser) Read() (Block, error) {
	for {
		s, err := p.br.ReadString('\n')
		if err == io.EOF && s != "" {
			err = nil
		}
		if err != nil {
			return nil, err
		}

		b, err := ParseLine(s)
		if err != nil {
			return nil, err
		}
		if len(b) == 0 {
			continue
		}
		return b, nil
	}
}

// Parse returns every block in data.
func Parse(data string) ([]Block, error) {
	r := NewParser(strings.NewReader(data))
	var b []Block
	for {
		bl, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		b = append(b, bl)
	}
	return b, nil
}

func MustParse(data string) []Block {
	b, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return b
}
