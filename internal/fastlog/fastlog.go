// Package fastlog provides a small structured logging line builder used
// throughout ndstack. It mirrors the call-site shape used across the stack:
//
//	fastlog.NewLine(module, "msg").IP("ip", ip).MAC("mac", mac).Error(err).Write()
//
// Fields are accumulated on the Line and flushed in one logrus call, so a
// caller pays for formatting only when Write is actually invoked.
package fastlog

import (
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"inet.af/netaddr"
)

// Debug is a package-level switch for verbose logging. Nothing in this
// package reads it: whether Write's debug-level lines appear is decided by
// the logrus logger's level alone.
var Debug bool

var logger = logrus.StandardLogger()

// SetOutput lets a binary redirect ndstack's log lines, e.g. to a file.
func SetOutput(l *logrus.Logger) { logger = l }

// Line accumulates fields for one log entry.
type Line struct {
	module string
	msg    string
	fields logrus.Fields
	err    error
}

// NewLine starts a new structured log line scoped to module.
func NewLine(module, msg string) *Line {
	return &Line{module: module, msg: msg, fields: logrus.Fields{}}
}

// Module nests a sub-component name into the line, e.g. "icmp6"+"ip6".
func (l *Line) Module(module, sub string) *Line {
	l.fields["module"] = module + "." + sub
	return l
}

func (l *Line) String(key, v string) *Line {
	l.fields[key] = v
	return l
}

func (l *Line) Int(key string, v int) *Line {
	l.fields[key] = v
	return l
}

func (l *Line) IP(key string, v net.IP) *Line {
	l.fields[key] = v.String()
	return l
}

// IPAddr is the inet.af/netaddr.IP counterpart to IP, for the packages
// that carry addresses as netaddr.IP (a comparable value usable as a map
// key) rather than net.IP.
func (l *Line) IPAddr(key string, v netaddr.IP) *Line {
	l.fields[key] = v.String()
	return l
}

func (l *Line) MAC(key string, v net.HardwareAddr) *Line {
	l.fields[key] = v.String()
	return l
}

func (l *Line) ByteArray(key string, v []byte) *Line {
	l.fields[key] = fmt.Sprintf("% x", v)
	return l
}

func (l *Line) Duration(key string, v time.Duration) *Line {
	l.fields[key] = v.String()
	return l
}

func (l *Line) Time(key string, v time.Time) *Line {
	l.fields[key] = v.Format(time.RFC3339)
	return l
}

func (l *Line) Struct(v fmt.Stringer) *Line {
	l.fields["detail"] = v.String()
	return l
}

func (l *Line) Stringer(v fmt.Stringer) *Line {
	l.fields["detail"] = v.String()
	return l
}

func (l *Line) Sprintf(key string, v interface{}) *Line {
	l.fields[key] = fmt.Sprintf("%+v", v)
	return l
}

func (l *Line) Error(err error) *Line {
	l.err = err
	return l
}

// Write emits the accumulated line. Lines with an attached error log at
// warning level; everything else logs at debug level and is dropped by
// logrus's default level filter unless Debug logging has been enabled by
// the caller's logrus configuration.
func (l *Line) Write() {
	entry := logger.WithFields(l.fields)
	if _, nested := l.fields["module"]; !nested {
		entry = entry.WithField("module", l.module)
	}
	if l.err != nil {
		entry.WithError(l.err).Warn(l.msg)
		return
	}
	entry.Debug(l.msg)
}
