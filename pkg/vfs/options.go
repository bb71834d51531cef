package vfs

import (
	"strings"

	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// Option is the closed set of recognized query options. Unrecognized
// query parameters are silently ignored by the open pipeline.
type Option int

const (
	// OptEncrypted forces the decryption probe on open (keys "enc",
	// "encrypt").
	OptEncrypted Option = iota

	// OptPwPath names a password file (key "pwfile").
	OptPwPath

	// OptPwFd names a numeric descriptor to read the password from
	// (key "pwfile" with a numeric value).
	OptPwFd

	// OptReadGroup passes through to the archive reader.
	OptReadGroup

	// OptVdbCtx passes through a database context.
	OptVdbCtx

	// OptGapTicket is a ticket for restricted access (key "tic").
	OptGapTicket
)

// findParam scans the raw query for a named parameter, case-insensitively.
// A parameter spelled without '=' matches with an empty value.
func (p *VPath) findParam(param string) (string, error) {
	if param == "" {
		return "", rc.New(rc.Path, rc.Reading, rc.Param, rc.Empty)
	}

	query := strings.TrimPrefix(p.query, "?")
	for query != "" {
		var pair string
		pair, query, _ = strings.Cut(query, "&")

		name, value, hasValue := strings.Cut(pair, "=")
		if strings.EqualFold(name, param) {
			if !hasValue {
				return "", nil
			}
			return value, nil
		}
	}

	return "", rc.New(rc.Path, rc.Reading, rc.Param, rc.NotFound)
}

// ReadParam copies the value of the named query parameter into buf.
func (p *VPath) ReadParam(param string, buf []byte) (int, error) {
	if err := p.testValid(rc.Reading); err != nil {
		return 0, err
	}
	value, err := p.findParam(param)
	if err != nil {
		return 0, err
	}
	return copyOut(value, buf)
}

// Param returns the value of the named query parameter.
func (p *VPath) Param(param string) (string, error) {
	if err := p.testValid(rc.Reading); err != nil {
		return "", err
	}
	return p.findParam(param)
}

// Option looks up a recognized query option. Options with alternate
// spellings fall back to the second key.
func (p *VPath) Option(opt Option) (string, error) {
	if err := p.testValid(rc.Reading); err != nil {
		return "", err
	}

	var param1, param2 string
	switch opt {
	case OptEncrypted:
		param1, param2 = "enc", "encrypt"
	case OptPwPath:
		param1 = "pwfile"
	case OptPwFd:
		param1 = "pwfile"
	case OptReadGroup:
		param1 = "readgroup"
	case OptVdbCtx:
		param1 = "vdb-ctx"
	case OptGapTicket:
		param1 = "tic"
	default:
		return "", rc.New(rc.Path, rc.Reading, rc.Token, rc.Unrecognized)
	}

	value, err := p.findParam(param1)
	if param2 != "" && rc.Is(err, rc.NotFound) {
		value, err = p.findParam(param2)
	}
	if err != nil {
		return "", err
	}

	switch opt {
	case OptPwPath:
		// pwfile holding a number belongs to OptPwFd
		if isAllDigits(value) {
			return "", rc.New(rc.Path, rc.Reading, rc.Param, rc.NotFound)
		}
	case OptPwFd:
		if !isAllDigits(value) {
			return "", rc.New(rc.Path, rc.Reading, rc.Param, rc.NotFound)
		}
	}
	return value, nil
}

// HasOption reports whether the option is present at all.
func (p *VPath) HasOption(opt Option) bool {
	_, err := p.Option(opt)
	return err == nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
