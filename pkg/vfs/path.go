package vfs

import (
	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// SchemeType classifies the URI scheme of a parsed path.
type SchemeType int

const (
	SchemeNone SchemeType = iota
	SchemeFile
	SchemeNcbiFile
	SchemeNcbiVfs
	SchemeNcbiAcc
	SchemeNcbiObj
	SchemeNcbiLegrefseq
	SchemeHTTP
	SchemeHTTPS
	SchemeFTP
	SchemeFasp
	SchemeNotSupported
	SchemeInvalid
)

// PathType classifies the hierarchical portion of a parsed path.
type PathType int

const (
	PTInvalid PathType = iota
	PTOID
	PTAccession
	PTNameOrOID
	PTNameOrAccession
	PTName
	PTRelPath
	PTFullPath
	PTUNCPath
	PTHostName
	PTEndpoint
	PTAuth
)

// HostType tells how the authority's host was spelled.
type HostType int

const (
	HostNone HostType = iota
	HostDNS
	HostIPv4
	HostIPv6
)

// maxAccessionLen bounds what an explicit ncbi-acc path accepts as an
// accession.
const maxAccessionLen = 20

// VPath is the immutable, classified representation of a URI, POSIX path
// or accession. All string fields are slices of the single backing string
// the value owns; a VPath never mutates after parsing.
type VPath struct {
	buffer string

	fromURI    bool
	schemeType SchemeType
	scheme     string

	auth        string
	host        string
	hostType    HostType
	ipv4        uint32
	ipv6        [8]uint16
	portName    string
	portNum     uint16
	missingPort bool

	path     string
	pathType PathType
	query    string
	fragment string

	objID   uint32
	accCode uint32
}

// FromURI reports whether the input carried a scheme.
func (p *VPath) FromURI() bool {
	return p.fromURI
}

// SchemeType returns the classified scheme; SchemeNone for plain paths.
func (p *VPath) SchemeType() SchemeType {
	if p.pathType == PTInvalid {
		return SchemeInvalid
	}
	if !p.fromURI {
		return SchemeNone
	}
	return p.schemeType
}

// Scheme returns the original scheme text.
func (p *VPath) Scheme() string {
	return p.scheme
}

func (p *VPath) Auth() string {
	return p.auth
}

func (p *VPath) Host() string {
	return p.host
}

func (p *VPath) HostType() HostType {
	return p.hostType
}

// IPv4 returns the packed dotted-quad when HostType is HostIPv4.
func (p *VPath) IPv4() uint32 {
	return p.ipv4
}

// IPv6 returns the eight 16-bit groups when HostType is HostIPv6.
func (p *VPath) IPv6() [8]uint16 {
	return p.ipv6
}

func (p *VPath) PortName() string {
	return p.portName
}

func (p *VPath) PortNum() uint16 {
	return p.portNum
}

// MissingPort reports a colon with no port after it.
func (p *VPath) MissingPort() bool {
	return p.missingPort
}

// Path returns the hierarchical portion.
func (p *VPath) Path() string {
	return p.path
}

func (p *VPath) PathType() PathType {
	return p.pathType
}

// Query returns the raw query including its leading '?', or "".
func (p *VPath) Query() string {
	return p.query
}

// Fragment returns the raw fragment including its leading '#', or "".
func (p *VPath) Fragment() string {
	return p.fragment
}

// OID returns the numeric object id for PTOID / PTNameOrOID paths.
func (p *VPath) OID() uint32 {
	return p.objID
}

// AccCode returns the packed accession shape:
// (prefix<<16) | (alpha<<12) | (digit<<8) | (ext<<4) | suffix.
func (p *VPath) AccCode() uint32 {
	return p.accCode
}

// IsFSCompatible asks whether the path can be handed to the OS
// filesystem.
func (p *VPath) IsFSCompatible() bool {
	switch p.pathType {
	case PTNameOrAccession, PTName, PTRelPath, PTUNCPath, PTFullPath:
		return true
	}
	return false
}

func (p *VPath) testValid(op rc.Op) error {
	if p == nil {
		return rc.New(rc.Path, op, rc.Self, rc.Null)
	}
	if p.pathType == PTInvalid {
		return rc.New(rc.Path, op, rc.Self, rc.Invalid)
	}
	return nil
}
