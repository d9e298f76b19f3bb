package rawhttp

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// LengthPolicy decides how a Content-Length that disagrees with the captured
// body is handled during parsing.
type LengthPolicy int

const (
	// LengthPreserve keeps the body verbatim and records the mismatch.
	// Content-Length is recomputed from the body before transmission.
	LengthPreserve LengthPolicy = iota

	// LengthStrict truncates a body longer than declared and rejects a body
	// shorter than declared.
	LengthStrict
)

func (p LengthPolicy) String() string {
	switch p {
	case LengthPreserve:
		return "preserve"
	case LengthStrict:
		return "strict"
	default:
		return fmt.Sprintf("LengthPolicy(%d)", int(p))
	}
}

// ParseOptions tunes the parser.
type ParseOptions struct {
	LengthPolicy LengthPolicy
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type line struct {
	num  int
	text string
}

// Parse parses raw request bytes with the default options.
func Parse(raw []byte) (*Request, error) {
	return ParseWithOptions(raw, ParseOptions{})
}

// ParseWithOptions parses the exact bytes copied from an intercepting proxy
// into a Request. Any failure is a *MalformedRequestError.
func ParseWithOptions(raw []byte, opt ParseOptions) (*Request, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, newMalformed(0, "", "empty input")
	}

	lines, body, ok := splitHead(raw)
	if len(lines) == 0 {
		return nil, newMalformed(1, "", "missing request line")
	}
	if !ok {
		last := lines[len(lines)-1]
		return nil, newMalformed(last.num, last.text, "no blank line separating headers from body")
	}

	req, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, err
	}

	headers, headerLines, err := parseHeaderLines(lines[1:])
	if err != nil {
		return nil, err
	}
	req.Headers = headers

	if err := applyBody(req, body, headerLines, opt); err != nil {
		return nil, err
	}

	return req, nil
}

// ParseHeaderBlock parses header lines (without the start line) into an
// ordered list, applying the same folding and validation rules as Parse.
// The block ends at the first empty line or at the end of input.
func ParseHeaderBlock(block []byte) (Headers, error) {
	var lines []line
	for i, text := range strings.Split(string(block), "\n") {
		text = strings.TrimSuffix(text, "\r")
		if text == "" {
			break
		}
		lines = append(lines, line{num: i + 1, text: text})
	}

	headers, _, err := parseHeaderLines(lines)
	return headers, err
}

// splitHead splits raw at the first empty line. Lines end at '\n', with an
// optional preceding '\r', so CRLF, LF and mixed input are handled alike.
func splitHead(raw []byte) ([]line, []byte, bool) {
	var lines []line

	pos, num := 0, 0
	for pos < len(raw) {
		num++
		end := bytes.IndexByte(raw[pos:], '\n')
		if end < 0 {
			text := strings.TrimSuffix(string(raw[pos:]), "\r")
			if text != "" {
				lines = append(lines, line{num: num, text: text})
			}
			return lines, nil, false
		}

		text := strings.TrimSuffix(string(raw[pos:pos+end]), "\r")
		pos += end + 1

		if text == "" {
			return lines, raw[pos:], true
		}
		lines = append(lines, line{num: num, text: text})
	}

	return lines, nil, false
}

func parseRequestLine(l line) (*Request, error) {
	fields := strings.Fields(l.text)
	if len(fields) < 3 {
		return nil, newMalformed(l.num, l.text, "request line needs method, target and version")
	}
	if len(fields) > 3 {
		return nil, newMalformed(l.num, l.text, "unexpected tokens in request line")
	}

	method, target, proto := fields[0], fields[1], fields[2]

	if !httpguts.ValidHeaderFieldName(method) {
		return nil, newMalformed(l.num, l.text, "invalid method")
	}
	if !strings.HasPrefix(strings.ToUpper(proto), "HTTP/") {
		return nil, newMalformed(l.num, l.text, "invalid protocol version")
	}
	if !validTarget(method, target) {
		return nil, newMalformed(l.num, l.text, "invalid request target")
	}

	return &Request{
		Method:         method,
		Target:         target,
		Proto:          proto,
		DeclaredLength: -1,
	}, nil
}

func validTarget(method, target string) bool {
	switch {
	case strings.HasPrefix(target, "/"):
		return true
	case target == "*":
		return strings.EqualFold(method, "OPTIONS")
	case IsAbsoluteForm(target):
		u, err := url.Parse(target)
		return err == nil && u.Host != ""
	default:
		return false
	}
}

func parseHeaderLines(lines []line) (Headers, []int, error) {
	headers := make(Headers, 0, len(lines))
	lineOf := make([]int, 0, len(lines))

	for _, l := range lines {
		if l.text[0] == ' ' || l.text[0] == '\t' {
			if len(headers) == 0 {
				return nil, nil, newMalformed(l.num, l.text, "continuation line without a preceding header")
			}
			cont := strings.Trim(l.text, " \t")
			if !httpguts.ValidHeaderFieldValue(cont) {
				return nil, nil, newMalformed(l.num, l.text, "invalid header value")
			}
			last := &headers[len(headers)-1]
			switch {
			case cont == "":
			case last.Value == "":
				last.Value = cont
			default:
				last.Value += " " + cont
			}
			continue
		}

		colon := strings.IndexByte(l.text, ':')
		if colon < 0 {
			return nil, nil, newMalformed(l.num, l.text, "header line without a colon")
		}

		name := strings.TrimRight(l.text[:colon], " \t")
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, nil, newMalformed(l.num, l.text, "invalid header name")
		}

		value := strings.Trim(l.text[colon+1:], " \t")
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, nil, newMalformed(l.num, l.text, "invalid header value")
		}

		headers = append(headers, Header{Name: name, Value: value})
		lineOf = append(lineOf, l.num)
	}

	return headers, lineOf, nil
}

func applyBody(req *Request, body []byte, lineOf []int, opt ParseOptions) error {
	declared, err := declaredLength(req.Headers, lineOf)
	if err != nil {
		return err
	}
	req.DeclaredLength = declared

	teLine := firstLine(lineOf, req.Headers.Indexes("Transfer-Encoding"))

	if stripChunked(req) {
		decoded, err := dechunk(body)
		if err != nil {
			return newMalformed(teLine, "", fmt.Sprintf("invalid chunked body: %v", err))
		}
		req.Dechunked = true
		req.Body = nonEmpty(decoded)
		return nil
	}

	if declared < 0 && !req.Headers.Has("Transfer-Encoding") && onlyLineBreaks(body) {
		body = nil
	}

	if opt.LengthPolicy == LengthStrict && declared >= 0 {
		switch {
		case int64(len(body)) > declared:
			body = body[:declared]
		case int64(len(body)) < declared:
			idx := req.Headers.Indexes("Content-Length")
			return newMalformed(
				firstLine(lineOf, idx),
				"",
				fmt.Sprintf("body has %d bytes, Content-Length declares %d", len(body), declared),
			)
		}
	}

	req.Body = nonEmpty(bytes.Clone(body))
	return nil
}

// declaredLength validates every Content-Length header and returns the
// agreed value, or -1 when none is present.
func declaredLength(headers Headers, lineOf []int) (int64, error) {
	declared := int64(-1)

	for _, i := range headers.Indexes("Content-Length") {
		for _, part := range strings.Split(headers[i].Value, ",") {
			n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || n < 0 {
				return 0, newMalformed(lineOf[i], headers[i].Name+": "+headers[i].Value, "invalid Content-Length")
			}
			if declared >= 0 && n != declared {
				return 0, newMalformed(lineOf[i], headers[i].Name+": "+headers[i].Value, "conflicting Content-Length values")
			}
			declared = n
		}
	}

	return declared, nil
}

// stripChunked removes the chunked transfer-coding from the header list and
// reports whether it was present. Other codings are kept.
func stripChunked(req *Request) bool {
	if !req.Headers.Has("Transfer-Encoding") {
		return false
	}

	chunked := false
	out := make(Headers, 0, len(req.Headers))
	for _, hdr := range req.Headers {
		if !strings.EqualFold(hdr.Name, "Transfer-Encoding") {
			out = append(out, hdr)
			continue
		}

		var kept []string
		for _, coding := range strings.Split(hdr.Value, ",") {
			coding = strings.TrimSpace(coding)
			if strings.EqualFold(coding, "chunked") {
				chunked = true
				continue
			}
			if coding != "" {
				kept = append(kept, coding)
			}
		}
		if len(kept) > 0 {
			out = append(out, Header{Name: hdr.Name, Value: strings.Join(kept, ", ")})
		}
	}

	if chunked {
		req.Headers = out
	}
	return chunked
}

func onlyLineBreaks(b []byte) bool {
	return len(bytes.Trim(b, "\r\n")) == 0
}

func nonEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func firstLine(lineOf []int, idx []int) int {
	if len(idx) == 0 || idx[0] >= len(lineOf) {
		return 0
	}
	return lineOf[idx[0]]
}
