package vfs

import (
	"fmt"
	"strings"

	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// schemeInt returns the explicit scheme text, or synthesizes one from the
// path classification.
func (p *VPath) schemeInt() (string, error) {
	if p.scheme != "" {
		return p.scheme, nil
	}

	switch p.pathType {
	case PTOID:
		return "ncbi-obj", nil
	case PTAccession:
		return "ncbi-acc", nil
	case PTNameOrOID, PTNameOrAccession, PTName, PTRelPath, PTFullPath:
		if p.query != "" || p.fragment != "" {
			return "ncbi-file", nil
		}
		return "file", nil
	case PTUNCPath:
		return "ncbi-file", nil
	default:
		return "", rc.New(rc.Path, rc.Reading, rc.Token, rc.Incorrect)
	}
}

// hostString renders the host in its original spelling. IPv6 hosts are
// bracketed only when a prefix introduces them inside a URI.
func (p *VPath) hostString(prefix string) string {
	switch p.hostType {
	case HostDNS:
		if p.host == "" {
			return prefix
		}
		return prefix + p.host

	case HostIPv4:
		return fmt.Sprintf("%s%d.%d.%d.%d", prefix,
			p.ipv4>>24&0xFF, p.ipv4>>16&0xFF, p.ipv4>>8&0xFF, p.ipv4&0xFF)

	case HostIPv6:
		groups := make([]string, 8)
		for g, group := range p.ipv6 {
			groups[g] = fmt.Sprintf("%x", group)
		}
		spelled := strings.Join(groups, ":")
		if prefix != "" {
			return prefix + "[" + spelled + "]"
		}
		return spelled

	default:
		return prefix
	}
}

func (p *VPath) portString() string {
	switch {
	case p.portName != "":
		return ":" + p.portName
	case p.portNum != 0:
		return fmt.Sprintf(":%d", p.portNum)
	case p.missingPort:
		return ":"
	default:
		return ""
	}
}

func (p *VPath) hasHost() bool {
	return p.host != "" || p.hostType == HostIPv4 || p.hostType == HostIPv6
}

// authorityString renders "//auth@host:port", "//host:port" or "//".
func (p *VPath) authorityString() string {
	var b strings.Builder

	hostPrefix := "//"
	if p.auth != "" {
		b.WriteString("//")
		b.WriteString(p.auth)
		hostPrefix = "@"
	}
	b.WriteString(p.hostString(hostPrefix))
	if p.hasHost() {
		b.WriteString(p.portString())
	}
	return b.String()
}

// pathString renders the hierarchical portion alone.
func (p *VPath) pathString() string {
	switch p.pathType {
	case PTOID:
		return fmt.Sprintf("%d", p.objID)
	case PTAccession, PTNameOrOID, PTNameOrAccession, PTName, PTRelPath,
		PTUNCPath, PTFullPath:
		return p.path
	default:
		return ""
	}
}

// buildURI assembles the full URI form, synthesizing a scheme when the
// original had none.
func (p *VPath) buildURI() (string, error) {
	scheme, err := p.schemeInt()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteByte(':')

	switch p.pathType {
	case PTOID:
		if p.hasHost() {
			b.WriteString(p.authorityString())
			b.WriteByte('/')
		}
		fmt.Fprintf(&b, "%d", p.objID)
		b.WriteString(p.query)
		b.WriteString(p.fragment)

	case PTAccession, PTNameOrOID, PTNameOrAccession, PTName, PTRelPath,
		PTUNCPath:
		// no authority: the path stands on its own
		b.WriteString(p.path)
		b.WriteString(p.query)
		b.WriteString(p.fragment)

	case PTFullPath:
		b.WriteString(p.authorityString())
		b.WriteString(p.path)
		b.WriteString(p.query)
		b.WriteString(p.fragment)

	case PTHostName, PTEndpoint, PTAuth:
		b.WriteString(p.authorityString())
		b.WriteString(p.query)
		b.WriteString(p.fragment)

	default:
		return "", rc.New(rc.Path, rc.Reading, rc.Token, rc.Incorrect)
	}

	return b.String(), nil
}

// MakeURI converts the path into its URI form.
func (p *VPath) MakeURI() (string, error) {
	if err := p.testValid(rc.Accessing); err != nil {
		return "", err
	}
	return p.buildURI()
}

// MakeString converts the path into a string, respecting the original
// source: a plain path stays a plain path, a URI stays a URI.
func (p *VPath) MakeString() (string, error) {
	if err := p.testValid(rc.Accessing); err != nil {
		return "", err
	}

	if p.fromURI || p.query != "" || p.fragment != "" {
		return p.buildURI()
	}

	switch p.pathType {
	case PTHostName:
		return p.hostString(""), nil
	case PTEndpoint:
		return p.hostString("") + p.portString(), nil
	default:
		return p.pathString(), nil
	}
}

// copyOut implements the caller-buffer read convention: on truncation the
// buffer is left alone and nothing is reported read.
func copyOut(value string, buf []byte) (int, error) {
	if len(value) > len(buf) {
		return 0, rc.New(rc.Path, rc.Reading, rc.Buffer, rc.Insufficient)
	}
	return copy(buf, value), nil
}

// ReadURI copies the URI form into buf.
func (p *VPath) ReadURI(buf []byte) (int, error) {
	if err := p.testValid(rc.Reading); err != nil {
		return 0, err
	}
	uri, err := p.buildURI()
	if err != nil {
		return 0, err
	}
	return copyOut(uri, buf)
}

// ReadScheme copies the effective scheme (explicit or synthesized).
func (p *VPath) ReadScheme(buf []byte) (int, error) {
	if err := p.testValid(rc.Reading); err != nil {
		return 0, err
	}
	scheme, err := p.schemeInt()
	if err != nil {
		return 0, err
	}
	return copyOut(scheme, buf)
}

func (p *VPath) ReadAuth(buf []byte) (int, error) {
	if err := p.testValid(rc.Reading); err != nil {
		return 0, err
	}
	return copyOut(p.auth, buf)
}

func (p *VPath) ReadHost(buf []byte) (int, error) {
	if err := p.testValid(rc.Reading); err != nil {
		return 0, err
	}
	return copyOut(p.hostString(""), buf)
}

func (p *VPath) ReadPortName(buf []byte) (int, error) {
	if err := p.testValid(rc.Reading); err != nil {
		return 0, err
	}
	return copyOut(p.portName, buf)
}

// ReadPath copies the hierarchical portion.
func (p *VPath) ReadPath(buf []byte) (int, error) {
	if err := p.testValid(rc.Reading); err != nil {
		return 0, err
	}
	return copyOut(p.pathString(), buf)
}

// ReadQuery copies the query without its leading '?'.
func (p *VPath) ReadQuery(buf []byte) (int, error) {
	if err := p.testValid(rc.Reading); err != nil {
		return 0, err
	}
	return copyOut(strings.TrimPrefix(p.query, "?"), buf)
}

// ReadFragment copies the fragment without its leading '#'.
func (p *VPath) ReadFragment(buf []byte) (int, error) {
	if err := p.testValid(rc.Reading); err != nil {
		return 0, err
	}
	return copyOut(strings.TrimPrefix(p.fragment, "#"), buf)
}
