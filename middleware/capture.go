package middleware

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"net/http"

	"trailhead/utils"
)

// CaptureResponseWriter records status and body while passing them through.
type CaptureResponseWriter struct {
	w           http.ResponseWriter
	statusCode  int
	buf         bytes.Buffer
	statusOnly  bool
	wroteHeader bool
	err         error
}

func NewCaptureResponseWriter(w http.ResponseWriter) *CaptureResponseWriter {
	return &CaptureResponseWriter{
		w:          w,
		statusCode: http.StatusOK,
	}
}

// NewStatusRecorder records the status and any reported error but not the body.
func NewStatusRecorder(w http.ResponseWriter) *CaptureResponseWriter {
	return &CaptureResponseWriter{
		w:          w,
		statusCode: http.StatusOK,
		statusOnly: true,
	}
}

func (c *CaptureResponseWriter) Header() http.Header {
	return c.w.Header()
}

func (c *CaptureResponseWriter) WriteHeader(statusCode int) {
	if !c.wroteHeader {
		c.statusCode = statusCode
		c.w.WriteHeader(statusCode)
		c.wroteHeader = true
	}
}

func (c *CaptureResponseWriter) Write(b []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if !c.statusOnly {
		c.buf.Write(b)
	}
	return c.w.Write(b)
}

func (c *CaptureResponseWriter) Status() int {
	return c.statusCode
}

func (c *CaptureResponseWriter) BodyBytes() []byte {
	return c.buf.Bytes()
}

// RecordError keeps err for the request log and passes it to any recorder further out.
func (c *CaptureResponseWriter) RecordError(err error) {
	c.err = err
	if outer, ok := c.w.(utils.ErrorRecorder); ok {
		outer.RecordError(err)
	}
}

func (c *CaptureResponseWriter) Err() error {
	return c.err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (c *CaptureResponseWriter) Unwrap() http.ResponseWriter {
	return c.w
}

// Hijack keeps websocket upgrades working behind the logging middleware.
func (c *CaptureResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := c.w.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	c.statusCode = http.StatusSwitchingProtocols
	c.wroteHeader = true
	return h.Hijack()
}
