package base

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/cockroachdb/errors"
)

// The wire format is a subset of HTTP/1.1:
//
//	<METHOD> <target> HTTP/1.1\r\n
//	<Name>: <value>\r\n ...
//	\r\n
//	<body (Content-Length bytes)>
//
// Every connection carries exactly one exchange (Connection: close).

const (
	// maxLineBytes bounds a single start or header line (size of the read buffer)
	maxLineBytes = 8 * 1024
	// maxHeaderLines bounds the number of header lines of one message
	maxHeaderLines = 100
)

var (
	errMalformedMessage = errors.New("malformed message")
	errBodyTooLarge     = errors.New("body too large")
)

// --------------------------------------------------------------------------
// Reading
// --------------------------------------------------------------------------

// readRequest reads one request from the connection. A connection that is closed
// before the first byte results in io.EOF.
func readRequest(r *bufio.Reader, maxBody int64) (*common.Request, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(line, " ")
	if len(parts) != 3 || parts[0] == "" || !strings.HasPrefix(parts[2], "HTTP/") {
		return nil, errors.Wrapf(errMalformedMessage, "invalid request line %q", line)
	}
	if !strings.HasPrefix(parts[1], "/") {
		return nil, errors.Wrapf(errMalformedMessage, "invalid request target %q", parts[1])
	}

	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	body, err := readBody(r, header, maxBody, false)
	if err != nil {
		return nil, err
	}

	return common.NewRequest(common.Method(parts[0]), parts[1], header, body), nil
}

// readResponse reads one response. Without Content-Length the body extends to EOF.
func readResponse(r *bufio.Reader, maxBody int64) (*common.Response, error) {
	line, err := readLine(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "HTTP/") {
		return nil, errors.Wrapf(errMalformedMessage, "invalid status line %q", line)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil || code < 100 || code > 999 {
		return nil, errors.Wrapf(errMalformedMessage, "invalid status code %q", parts[1])
	}

	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	body, err := readBody(r, header, maxBody, true)
	if err != nil {
		return nil, err
	}

	return common.NewResponse(code, header, body), nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return "", errors.Wrap(errMalformedMessage, "line too long")
	}
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

// readHeader reads header lines up to the empty line. The case of names is kept.
func readHeader(r *bufio.Reader) (map[string]string, error) {
	header := map[string]string{}
	for i := 0; ; i++ {
		if i > maxHeaderLines {
			return nil, errors.Wrap(errMalformedMessage, "too many header lines")
		}
		line, err := readLine(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if line == "" {
			return header, nil
		}
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.Wrapf(errMalformedMessage, "invalid header line %q", line)
		}
		header[name] = strings.TrimSpace(value)
	}
}

func readBody(r *bufio.Reader, header map[string]string, maxBody int64, untilEOF bool) ([]byte, error) {
	if te, ok := lookupHeader(header, "Transfer-Encoding"); ok && !strings.EqualFold(te, "identity") {
		return nil, errors.Wrapf(errMalformedMessage, "unsupported transfer encoding %q", te)
	}

	cl, ok := lookupHeader(header, common.HeaderContentLength)
	if !ok {
		if !untilEOF {
			return []byte{}, nil
		}
		limited := io.Reader(r)
		if maxBody > 0 {
			limited = io.LimitReader(r, maxBody+1)
		}
		body, err := io.ReadAll(limited)
		if err != nil {
			return nil, err
		}
		if maxBody > 0 && int64(len(body)) > maxBody {
			return nil, errBodyTooLarge
		}
		return body, nil
	}

	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || n < 0 {
		return nil, errors.Wrapf(errMalformedMessage, "invalid content length %q", cl)
	}
	if maxBody > 0 && n > maxBody {
		return nil, errors.Wrapf(errBodyTooLarge, "%d > %d bytes", n, maxBody)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// --------------------------------------------------------------------------
// Writing
// --------------------------------------------------------------------------

// writeResponse writes the status line, all headers plus Content-Length, a blank line and the body
func writeResponse(w io.Writer, resp *common.Response) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "HTTP/1.1 %d %s\r\n", resp.StatusCode, common.StatusText(resp.StatusCode))
	writeHeader(bw, resp.Header, len(resp.Body))
	if _, err := bw.Write(resp.Body); err != nil {
		return err
	}
	return bw.Flush()
}

// writeRequest writes a request with Connection: close
func writeRequest(w io.Writer, method common.Method, target, host string, body []byte) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s %s HTTP/1.1\r\n", method, target)
	header := map[string]string{
		"Host":                  host,
		common.HeaderConnection: "close",
	}
	if method == common.MethodGet && len(body) == 0 {
		writeHeader(bw, header, -1)
	} else {
		writeHeader(bw, header, len(body))
	}
	if _, err := bw.Write(body); err != nil {
		return err
	}
	return bw.Flush()
}

// writeHeader writes the headers in sorted order followed by the blank line.
// A negative contentLength omits the Content-Length header.
func writeHeader(bw *bufio.Writer, header map[string]string, contentLength int) {
	names := make([]string, 0, len(header))
	for name := range header {
		if strings.EqualFold(name, common.HeaderContentLength) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	clean := strings.NewReplacer("\r", "", "\n", "")
	for _, name := range names {
		fmt.Fprintf(bw, "%s: %s\r\n", clean.Replace(name), clean.Replace(header[name]))
	}
	if contentLength >= 0 {
		fmt.Fprintf(bw, "%s: %d\r\n", common.HeaderContentLength, contentLength)
	}
	bw.WriteString("\r\n")
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func lookupHeader(header map[string]string, name string) (string, bool) {
	for k, v := range header {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// isPeerAbort reports whether err means that the other side closed or reset the connection
func isPeerAbort(err error) bool {
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe)
}
