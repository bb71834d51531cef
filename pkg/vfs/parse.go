package vfs

import (
	"strings"
	"unicode/utf8"

	"github.com/sungsoo/sratoolkit/pkg/rc"
)

// The parser is a single forward pass over the input driving one state
// machine. It classifies eagerly and never backtracks: one anchor marks
// where the next captured substring begins, and accession shape counters
// run alongside ordinary name recognition. The grammar is a lenient
// superset of RFC 3986:
//
//	url       = accession | posix-path
//	          | scheme ':' ( '//' host-spec )? path query? fragment?
//	accession = alpha+ digit+ ( '.' digit+ )* ( '_' alpha+ )?
//	          | alpha+ '_' alpha* digit+ ...
//	scheme    = [A-Za-z][A-Za-z0-9+.-]*
//	host-spec = ( auth '@' )? ( dns | ipv4 | '[' ipv6 ']' ) ( ':' port )?
//	query     = '?' [^#]*
//	fragment  = '#' .*
type parseState int

const (
	vppStart parseState = iota
	vppAccPrefixAlphaNamePathOrScheme
	vppAccAlphaNamePath
	vppAccDigitNamePathOrScheme
	vppAccDigitNamePath
	vppAccExtNamePathOrScheme
	vppAccExtNamePath
	vppAccSuffixNamePath
	vppAccDotNamePathOrScheme
	vppAccDotNamePath
	vppAccUnderNamePath
	vppNamePathOrScheme
	vppAccOidRelOrSlash
	vppAccPrefixAlphaRel
	vppAccAlphaRel
	vppAccDigitRel
	vppAccExtRel
	vppAccSuffixRel
	vppOidRel
	vppAccDotRel
	vppAccUnderRel
	vppSlash
	vppAuthHostSpec
	vppAuthHostNamePort
	vppHostSpec
	vppHostNamePort
	vppIPv4Port
	vppIPv4Dot
	vppIPv6Port
	vppIPv6Colon
	vppPortSpecOrFullPath
	vppPortSpec
	vppPortName
	vppPortNum
	vppNamePath
	vppUNCOrMalformedPOSIXPath
	vppFullOrUNCPath
	vppRelPath
	vppFullPath
	vppUNCPath
	vppParamName
	vppParamValue
	vppFragment
)

func isAlpha(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isAlnum(ch rune) bool {
	return isAlpha(ch) || isDigit(ch)
}

func isXDigit(ch rune) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func xDigitValue(ch rune) uint32 {
	switch {
	case isDigit(ch):
		return uint32(ch - '0')
	case ch >= 'a':
		return uint32(ch-'a') + 10
	default:
		return uint32(ch-'A') + 10
	}
}

var errChar = rc.New(rc.Path, rc.Parsing, rc.Char, rc.Unexpected)

// Parse classifies a URI, POSIX path or accession string. The parser is
// lenient: its job is to classify, not to enforce RFC correctness.
func Parse(uri string) (*VPath, error) {
	p := &VPath{buffer: uri}

	var (
		state  = vppStart
		anchor int

		accPrefix, accAlpha, accDigit, accExt, accSuffix uint32

		ip   int
		ipv4 [4]uint32
		port uint32

		ipv6Groups  []uint32
		ipv6Cur     uint32
		ipv6Lead    bool // '[' just seen, a lone ':' must start '::'
		ipv6HalfZip bool // leading ':' seen, the next char must be ':'
		ipv6Zip     = -1 // group index the '::' sits at, -1 when absent

		oid       uint64
		oidAnchor int
	)

	resetAnchor := func(i int) {
		anchor = i
	}

	i := 0
	for i < len(uri) {
		var ch rune
		bytes := 1

		c := uri[i]
		if c < 0x80 {
			ch = rune(c)
		} else {
			r, size := utf8.DecodeRuneInString(uri[i:])
			if r == utf8.RuneError && size <= 1 {
				if !utf8.FullRuneInString(uri[i:]) {
					return nil, rc.New(rc.Path, rc.Parsing, rc.Data, rc.Insufficient)
				}
				return nil, rc.New(rc.Path, rc.Parsing, rc.Char, rc.Invalid)
			}
			ch = r
			bytes = size
		}

		switch state {
		case vppStart:
			if ch >= 128 {
				state = vppNamePath
			} else if isAlpha(ch) {
				accAlpha = 1
				state = vppAccPrefixAlphaNamePathOrScheme
			} else if isDigit(ch) {
				state = vppNamePath
			} else {
				switch ch {
				case '/':
					state = vppFullOrUNCPath
				case ':', '?', '#':
					return nil, errChar
				default:
					state = vppNamePath
				}
			}

		case vppAccPrefixAlphaNamePathOrScheme:
			if ch >= 128 {
				accAlpha = 0
				state = vppNamePath
			} else if isAlpha(ch) {
				accAlpha++
			} else if isDigit(ch) {
				accDigit++
				state = vppAccDigitNamePathOrScheme
			} else {
				switch ch {
				case '/':
					accAlpha = 0
					state = vppRelPath
				case '_':
					accPrefix = 1
					accAlpha = 0
					state = vppAccAlphaNamePath
				case '.', '+', '-':
					accAlpha = 0
					state = vppNamePathOrScheme
				case ':':
					accAlpha = 0
					p.captureScheme(uri, anchor, i)
					state = vppAccOidRelOrSlash
				case '?', '#':
					return nil, errChar
				default:
					accAlpha = 0
					state = vppNamePath
				}
			}

		case vppAccAlphaNamePath:
			if ch >= 128 {
				accPrefix, accAlpha = 0, 0
				state = vppNamePath
			} else if isAlpha(ch) {
				accAlpha++
			} else if isDigit(ch) {
				accDigit++
				state = vppAccDigitNamePath
			} else {
				switch ch {
				case '/':
					accPrefix, accAlpha = 0, 0
					state = vppRelPath
				case ':', '?', '#':
					return nil, errChar
				default:
					accPrefix, accAlpha = 0, 0
					state = vppNamePath
				}
			}

		case vppAccDigitNamePathOrScheme:
			if ch >= 128 {
				accPrefix, accAlpha, accDigit = 0, 0, 0
				state = vppNamePath
			} else if isAlpha(ch) {
				accPrefix, accAlpha, accDigit = 0, 0, 0
				state = vppNamePathOrScheme
			} else if isDigit(ch) {
				accDigit++
			} else {
				switch ch {
				case '/':
					accPrefix, accAlpha, accDigit = 0, 0, 0
					state = vppRelPath
				case '.':
					state = vppAccDotNamePathOrScheme
				case '+', '-':
					accPrefix, accAlpha, accDigit = 0, 0, 0
					state = vppNamePathOrScheme
				case ':':
					accPrefix, accAlpha, accDigit = 0, 0, 0
					p.captureScheme(uri, anchor, i)
					state = vppAccOidRelOrSlash
				case '?', '#':
					return nil, errChar
				default:
					accPrefix, accAlpha, accDigit = 0, 0, 0
					state = vppNamePath
				}
			}

		case vppAccDigitNamePath:
			if ch >= 128 || isAlpha(ch) {
				accPrefix, accAlpha, accDigit = 0, 0, 0
				state = vppNamePath
			} else if isDigit(ch) {
				accDigit++
			} else {
				switch ch {
				case '/':
					accPrefix, accAlpha, accDigit = 0, 0, 0
					state = vppRelPath
				case '.':
					state = vppAccDotNamePath
				case ':', '?', '#':
					return nil, errChar
				default:
					accPrefix, accAlpha, accDigit = 0, 0, 0
					state = vppNamePath
				}
			}

		case vppAccExtNamePathOrScheme:
			if ch >= 128 {
				accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
				state = vppNamePath
			} else if isAlpha(ch) {
				accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
				state = vppNamePathOrScheme
			} else if isDigit(ch) {
				// stay
			} else {
				switch ch {
				case '/':
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppRelPath
				case '.':
					state = vppAccDotNamePathOrScheme
				case '+', '-':
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppNamePathOrScheme
				case ':':
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					p.captureScheme(uri, anchor, i)
					state = vppAccOidRelOrSlash
				case '?', '#':
					return nil, errChar
				case '_':
					if accPrefix != 0 && accAlpha == 0 && accDigit == 9 {
						state = vppAccUnderNamePath
						break
					}
					fallthrough
				default:
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppNamePath
				}
			}

		case vppAccExtNamePath:
			if ch >= 128 || isAlpha(ch) {
				accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
				state = vppNamePath
			} else if isDigit(ch) {
				// stay
			} else {
				switch ch {
				case '/':
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppRelPath
				case '.':
					state = vppAccDotNamePath
				case ':', '?', '#':
					return nil, errChar
				case '_':
					if accPrefix != 0 && accAlpha == 0 && accDigit == 9 && accExt == 1 {
						state = vppAccUnderNamePath
						break
					}
					fallthrough
				default:
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppNamePath
				}
			}

		case vppAccSuffixNamePath:
			if ch >= 128 || isDigit(ch) {
				accPrefix, accAlpha, accDigit, accExt, accSuffix = 0, 0, 0, 0, 0
				state = vppNamePath
			} else if isAlpha(ch) {
				accSuffix++
			} else {
				switch ch {
				case '/':
					accPrefix, accAlpha, accDigit, accExt, accSuffix = 0, 0, 0, 0, 0
					state = vppRelPath
				case ':', '?', '#':
					return nil, errChar
				default:
					accPrefix, accAlpha, accDigit, accExt, accSuffix = 0, 0, 0, 0, 0
					state = vppNamePath
				}
			}

		case vppAccDotNamePathOrScheme:
			if ch >= 128 {
				accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
				state = vppNamePath
			} else if isAlpha(ch) {
				accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
				state = vppNamePathOrScheme
			} else if isDigit(ch) {
				accExt++
				state = vppAccExtNamePathOrScheme
			} else {
				switch ch {
				case '/':
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppRelPath
				case '.', '+', '-':
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppNamePathOrScheme
				case ':':
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					p.captureScheme(uri, anchor, i)
					state = vppAccOidRelOrSlash
				case '?', '#':
					return nil, errChar
				default:
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppNamePath
				}
			}

		case vppAccDotNamePath:
			if ch >= 128 || isAlpha(ch) {
				accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
				state = vppNamePath
			} else if isDigit(ch) {
				accExt++
				state = vppAccExtNamePath
			} else {
				switch ch {
				case '/':
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppRelPath
				case ':', '?', '#':
					return nil, errChar
				default:
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppNamePath
				}
			}

		case vppAccUnderNamePath:
			if ch >= 128 || isDigit(ch) {
				accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
				state = vppNamePath
			} else if isAlpha(ch) {
				accSuffix++
				state = vppAccSuffixNamePath
			} else {
				switch ch {
				case '/':
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppRelPath
				case ':', '?', '#':
					return nil, errChar
				default:
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppNamePath
				}
			}

		case vppNamePathOrScheme:
			if ch >= 128 {
				state = vppNamePath
			} else if isAlnum(ch) {
				// stay
			} else {
				switch ch {
				case '/':
					state = vppRelPath
				case '.', '+', '-':
					// still a candidate scheme
				case ':':
					p.captureScheme(uri, anchor, i)
					state = vppAccOidRelOrSlash
				case '?', '#':
					return nil, errChar
				default:
					state = vppNamePath
				}
			}

		case vppAccOidRelOrSlash:
			resetAnchor(i)
			accPrefix, accDigit, accExt = 0, 0, 0

			if ch >= 128 {
				state = vppNamePath
			} else if isAlpha(ch) {
				accAlpha = 1
				state = vppAccPrefixAlphaRel
			} else if isDigit(ch) {
				state = vppOidRel
				oid = uint64(ch - '0')
				oidAnchor = i
			} else if ch != '/' {
				state = vppNamePath
			} else {
				state = vppSlash
			}

		case vppAccPrefixAlphaRel:
			if ch >= 128 {
				accAlpha = 0
				state = vppNamePath
			} else if isAlpha(ch) {
				accAlpha++
			} else if isDigit(ch) {
				accDigit++
				state = vppAccDigitRel
			} else {
				switch ch {
				case '_':
					accPrefix = 1
					accAlpha = 0
					state = vppAccAlphaRel
				case '/':
					accAlpha = 0
					state = vppRelPath
				case '?':
					p.captureAccession(uri, anchor, i)
					p.captureAccCode(accPrefix, accAlpha, accDigit, accExt, accSuffix)
					state = vppParamName
					resetAnchor(i)
				case '#':
					p.captureAccession(uri, anchor, i)
					p.captureAccCode(accPrefix, accAlpha, accDigit, accExt, accSuffix)
					state = vppFragment
					resetAnchor(i)
				case ':':
					return nil, errChar
				default:
					accAlpha = 0
					state = vppNamePath
				}
			}

		case vppAccAlphaRel:
			if ch >= 128 {
				accPrefix, accAlpha = 0, 0
				state = vppNamePath
			} else if isAlpha(ch) {
				accAlpha++
			} else if isDigit(ch) {
				accDigit++
				state = vppAccDigitRel
			} else {
				switch ch {
				case '/':
					accPrefix, accAlpha = 0, 0
					state = vppRelPath
				case '?':
					p.captureAccession(uri, anchor, i)
					p.captureAccCode(accPrefix, accAlpha, accDigit, accExt, accSuffix)
					state = vppParamName
					resetAnchor(i)
				case '#':
					p.captureAccession(uri, anchor, i)
					p.captureAccCode(accPrefix, accAlpha, accDigit, accExt, accSuffix)
					state = vppFragment
					resetAnchor(i)
				case ':':
					return nil, errChar
				default:
					accPrefix, accAlpha = 0, 0
					state = vppNamePath
				}
			}

		case vppAccDigitRel:
			if ch >= 128 || isAlpha(ch) {
				accPrefix, accAlpha, accDigit = 0, 0, 0
				state = vppNamePath
			} else if isDigit(ch) {
				accDigit++
			} else {
				switch ch {
				case '.':
					state = vppAccDotRel
				case '/':
					accPrefix, accAlpha, accDigit = 0, 0, 0
					state = vppRelPath
				case '?':
					p.captureAccession(uri, anchor, i)
					p.captureAccCode(accPrefix, accAlpha, accDigit, accExt, accSuffix)
					state = vppParamName
					resetAnchor(i)
				case '#':
					p.captureAccession(uri, anchor, i)
					p.captureAccCode(accPrefix, accAlpha, accDigit, accExt, accSuffix)
					state = vppFragment
					resetAnchor(i)
				case ':':
					return nil, errChar
				default:
					accPrefix, accAlpha, accDigit = 0, 0, 0
					state = vppNamePath
				}
			}

		case vppAccExtRel:
			if ch >= 128 || isAlpha(ch) {
				accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
				state = vppNamePath
			} else if isDigit(ch) {
				// stay
			} else {
				switch ch {
				case '.':
					state = vppAccDotRel
				case '/':
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppRelPath
				case '?':
					p.captureAccession(uri, anchor, i)
					p.captureAccCode(accPrefix, accAlpha, accDigit, accExt, accSuffix)
					state = vppParamName
					resetAnchor(i)
				case '#':
					p.captureAccession(uri, anchor, i)
					p.captureAccCode(accPrefix, accAlpha, accDigit, accExt, accSuffix)
					state = vppFragment
					resetAnchor(i)
				case ':':
					return nil, errChar
				case '_':
					if accPrefix != 0 && accAlpha == 0 && accDigit == 9 && accExt == 1 {
						state = vppAccUnderRel
						break
					}
					fallthrough
				default:
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppNamePath
				}
			}

		case vppAccSuffixRel:
			if ch >= 128 || isDigit(ch) {
				accPrefix, accAlpha, accDigit, accExt, accSuffix = 0, 0, 0, 0, 0
				state = vppNamePath
			} else if isAlpha(ch) {
				// stay
			} else {
				switch ch {
				case '.':
					state = vppAccDotRel
				case '/':
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppRelPath
				case '?':
					p.captureAccession(uri, anchor, i)
					p.captureAccCode(accPrefix, accAlpha, accDigit, accExt, accSuffix)
					state = vppParamName
					resetAnchor(i)
				case '#':
					p.captureAccession(uri, anchor, i)
					p.captureAccCode(accPrefix, accAlpha, accDigit, accExt, accSuffix)
					state = vppFragment
					resetAnchor(i)
				case ':':
					return nil, errChar
				default:
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppNamePath
				}
			}

		case vppOidRel:
			if ch >= 128 {
				oid = 0
				state = vppNamePath
			} else if isDigit(ch) {
				if oid == 0 {
					oidAnchor = i
				}
				oid = oid*10 + uint64(ch-'0')
			} else {
				switch ch {
				case '/':
					oid = 0
					state = vppRelPath
				case '?':
					p.captureOid(oid, uri, anchor, oidAnchor, i)
					state = vppParamName
					resetAnchor(i)
				case '#':
					p.captureOid(oid, uri, anchor, oidAnchor, i)
					state = vppFragment
					resetAnchor(i)
				case ':':
					return nil, errChar
				default:
					oid = 0
					state = vppNamePath
				}
			}

		case vppAccDotRel:
			if ch >= 128 || isAlpha(ch) {
				accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
				state = vppNamePath
			} else if isDigit(ch) {
				accExt++
				state = vppAccExtRel
			} else {
				switch ch {
				case '/':
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppRelPath
				case ':':
					return nil, errChar
				default:
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppNamePath
				}
			}

		case vppAccUnderRel:
			if ch >= 128 || isDigit(ch) {
				accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
				state = vppNamePath
			} else if isAlpha(ch) {
				accSuffix++
				state = vppAccSuffixRel
			} else {
				switch ch {
				case '/':
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppRelPath
				case ':':
					return nil, errChar
				default:
					accPrefix, accAlpha, accDigit, accExt = 0, 0, 0, 0
					state = vppNamePath
				}
			}

		case vppSlash:
			switch ch {
			case '/':
				if p.schemeType == SchemeNcbiFile {
					state = vppUNCOrMalformedPOSIXPath
				} else {
					state = vppAuthHostSpec
				}
			case ':':
				return nil, errChar
			case '?':
				p.capturePath(uri, anchor, i, PTFullPath)
				state = vppParamName
				resetAnchor(i)
			case '#':
				p.capturePath(uri, anchor, i, PTFullPath)
				state = vppFragment
				resetAnchor(i)
			default:
				state = vppFullPath
			}

		case vppAuthHostSpec, vppHostSpec:
			if ch >= 128 {
				return nil, errChar
			}

			fromAuth := state == vppAuthHostSpec
			resetAnchor(i)

			if isAlpha(ch) {
				if fromAuth {
					state = vppAuthHostNamePort
				} else {
					state = vppHostNamePort
				}
			} else if isDigit(ch) {
				ip = 0
				ipv4[0] = uint32(ch - '0')
				state = vppIPv4Port
			} else {
				switch ch {
				case '/':
					state = vppFullPath
				case '[':
					ipv6Groups = nil
					ipv6Cur = 0
					ipv6Lead = true
					ipv6HalfZip = false
					ipv6Zip = -1
					state = vppIPv6Colon
				default:
					return nil, errChar
				}
			}

		case vppAuthHostNamePort:
			if ch >= 128 {
				return nil, errChar
			}
			if isAlnum(ch) {
				// stay
			} else {
				switch ch {
				case '@':
					p.captureAuth(uri, anchor, i)
					state = vppHostSpec
				case '.', '+', '-', '_':
					// stay
				case ':':
					p.captureHostName(uri, anchor, i)
					state = vppPortSpec
				case '/':
					p.captureHostName(uri, anchor, i)
					state = vppFullPath
					resetAnchor(i)
				default:
					return nil, errChar
				}
			}

		case vppHostNamePort:
			if ch >= 128 {
				return nil, errChar
			}
			if isAlnum(ch) {
				// stay
			} else {
				switch ch {
				case '.', '+', '-', '_':
					// stay
				case ':':
					p.captureHostName(uri, anchor, i)
					state = vppPortSpec
				case '/':
					p.captureHostName(uri, anchor, i)
					state = vppFullPath
					resetAnchor(i)
				default:
					return nil, errChar
				}
			}

		case vppIPv4Port:
			if ch >= 128 {
				return nil, errChar
			}
			if ipv4[ip] >= 256 {
				return nil, rc.New(rc.Path, rc.Parsing, rc.Data, rc.Excessive)
			}
			if isDigit(ch) {
				ipv4[ip] = ipv4[ip]*10 + uint32(ch-'0')
			} else {
				ip++
				if ip == 4 {
					switch ch {
					case ':':
						if err := p.captureIPv4(ipv4); err != nil {
							return nil, err
						}
						state = vppPortSpec
					case '/':
						if err := p.captureIPv4(ipv4); err != nil {
							return nil, err
						}
						state = vppFullPath
						resetAnchor(i)
					default:
						return nil, errChar
					}
				} else if ch == '.' {
					state = vppIPv4Dot
				} else {
					return nil, errChar
				}
			}

		case vppIPv4Dot:
			if ch >= 128 || !isDigit(ch) {
				return nil, errChar
			}
			ipv4[ip] = uint32(ch - '0')
			state = vppIPv4Port

		case vppIPv6Port:
			// inside a group
			if ch >= 128 {
				return nil, errChar
			}
			if ipv6Cur >= 0x10000 {
				return nil, rc.New(rc.Path, rc.Parsing, rc.Data, rc.Excessive)
			}
			if isXDigit(ch) {
				ipv6Cur = ipv6Cur<<4 + xDigitValue(ch)
			} else {
				switch ch {
				case ']':
					ipv6Groups = append(ipv6Groups, ipv6Cur)
					if err := p.captureIPv6(ipv6Groups, ipv6Zip); err != nil {
						return nil, err
					}
					state = vppPortSpecOrFullPath
				case ':':
					ipv6Groups = append(ipv6Groups, ipv6Cur)
					ipv6Cur = 0
					if len(ipv6Groups) >= 8 {
						return nil, errChar
					}
					state = vppIPv6Colon
				default:
					return nil, errChar
				}
			}

		case vppIPv6Colon:
			// expecting a group, a '::' marker, or the closing bracket
			switch {
			case ipv6HalfZip:
				// a lone leading ':' must complete a '::'
				if ch != ':' {
					return nil, errChar
				}
				ipv6HalfZip = false
				ipv6Zip = 0
			case ch == ':':
				if ipv6Lead {
					ipv6Lead = false
					ipv6HalfZip = true
					break
				}
				if ipv6Zip >= 0 {
					return nil, errChar
				}
				ipv6Zip = len(ipv6Groups)
			case ch == ']':
				if ipv6Zip != len(ipv6Groups) {
					return nil, errChar
				}
				if err := p.captureIPv6(ipv6Groups, ipv6Zip); err != nil {
					return nil, err
				}
				state = vppPortSpecOrFullPath
			case ch < 128 && isXDigit(ch):
				ipv6Cur = xDigitValue(ch)
				ipv6Lead = false
				state = vppIPv6Port
			default:
				return nil, errChar
			}

		case vppPortSpecOrFullPath:
			switch ch {
			case ':':
				state = vppPortSpec
			case '/':
				state = vppFullPath
				resetAnchor(i)
			default:
				return nil, errChar
			}

		case vppPortSpec:
			if ch >= 128 {
				return nil, errChar
			}
			resetAnchor(i)
			if isAlpha(ch) {
				state = vppPortName
			} else if isDigit(ch) {
				port = uint32(ch - '0')
				state = vppPortNum
			} else {
				switch ch {
				case '/':
					p.missingPort = true
					state = vppFullPath
				default:
					return nil, errChar
				}
			}

		case vppPortName:
			if ch >= 128 {
				return nil, errChar
			}
			if isAlnum(ch) {
				// stay
			} else {
				switch ch {
				case '/':
					p.capturePortName(uri, anchor, i)
					state = vppFullPath
					resetAnchor(i)
				default:
					return nil, errChar
				}
			}

		case vppPortNum:
			if ch >= 128 {
				return nil, errChar
			}
			if port >= 0x10000 {
				return nil, rc.New(rc.Path, rc.Parsing, rc.Data, rc.Excessive)
			}
			if isDigit(ch) {
				port = port*10 + uint32(ch-'0')
			} else {
				switch ch {
				case '/':
					if err := p.capturePortNum(port); err != nil {
						return nil, err
					}
					state = vppFullPath
					resetAnchor(i)
				default:
					return nil, errChar
				}
			}

		case vppNamePath:
			switch ch {
			case '/':
				state = vppRelPath
			case ':':
				return nil, errChar
			case '?':
				p.capturePath(uri, anchor, i, PTName)
				state = vppParamName
				resetAnchor(i)
			case '#':
				p.capturePath(uri, anchor, i, PTName)
				state = vppFragment
				resetAnchor(i)
			}

		case vppUNCOrMalformedPOSIXPath:
			switch ch {
			case '/':
				state = vppFullPath
				resetAnchor(i)
			case ':':
				return nil, errChar
			case '?':
				p.capturePath(uri, anchor, i, PTFullPath)
				state = vppParamName
				resetAnchor(i)
			case '#':
				p.capturePath(uri, anchor, i, PTFullPath)
				state = vppFragment
				resetAnchor(i)
			default:
				state = vppUNCPath
			}

		case vppFullOrUNCPath, vppRelPath, vppFullPath:
			if state == vppFullOrUNCPath {
				if ch == '/' {
					state = vppUNCOrMalformedPOSIXPath
					break
				}
				state = vppFullPath
			}

			switch ch {
			case ':':
				return nil, errChar
			case '?':
				if state == vppRelPath {
					p.capturePath(uri, anchor, i, PTRelPath)
				} else {
					p.capturePath(uri, anchor, i, PTFullPath)
				}
				state = vppParamName
				resetAnchor(i)
			case '#':
				if state == vppRelPath {
					p.capturePath(uri, anchor, i, PTRelPath)
				} else {
					p.capturePath(uri, anchor, i, PTFullPath)
				}
				state = vppFragment
				resetAnchor(i)
			}

		case vppUNCPath:
			switch ch {
			case ':':
				return nil, errChar
			case '?':
				p.capturePath(uri, anchor, i, PTUNCPath)
				state = vppParamName
				resetAnchor(i)
			case '#':
				p.capturePath(uri, anchor, i, PTUNCPath)
				state = vppFragment
				resetAnchor(i)
			}

		case vppParamName:
			switch ch {
			case ':', '?':
				return nil, errChar
			case '=':
				state = vppParamValue
			case '#':
				p.captureQuery(uri, anchor, i)
				state = vppFragment
				resetAnchor(i)
			}

		case vppParamValue:
			switch ch {
			case ':', '?', '=':
				return nil, errChar
			case '&':
				state = vppParamName
			case '#':
				p.captureQuery(uri, anchor, i)
				state = vppFragment
				resetAnchor(i)
			}

		case vppFragment:
			switch ch {
			case ':', '?', '#':
				return nil, errChar
			}
		}

		i += bytes
	}

	// end of input: every state has a designated closing action
	switch state {
	case vppStart:
		return nil, rc.New(rc.Path, rc.Parsing, rc.String, rc.Empty)

	case vppAccPrefixAlphaNamePathOrScheme, vppAccAlphaNamePath,
		vppAccDigitNamePathOrScheme, vppAccDigitNamePath,
		vppAccExtNamePathOrScheme, vppAccExtNamePath, vppAccSuffixNamePath:
		p.captureAccession(uri, anchor, i)
		p.captureAccCode(accPrefix, accAlpha, accDigit, accExt, accSuffix)

	case vppAccDotNamePathOrScheme, vppAccDotNamePath, vppAccUnderNamePath,
		vppNamePathOrScheme:
		p.capturePath(uri, anchor, i, PTName)

	case vppAccOidRelOrSlash:
		return nil, rc.New(rc.Path, rc.Parsing, rc.Data, rc.Insufficient)

	case vppAccPrefixAlphaRel, vppAccAlphaRel, vppAccDigitRel,
		vppAccExtRel, vppAccSuffixRel:
		p.captureAccession(uri, anchor, i)
		p.captureAccCode(accPrefix, accAlpha, accDigit, accExt, accSuffix)

	case vppOidRel:
		p.captureOid(oid, uri, anchor, oidAnchor, i)

	case vppAccDotRel, vppAccUnderRel, vppSlash, vppAuthHostSpec, vppHostSpec:
		return nil, rc.New(rc.Path, rc.Parsing, rc.Data, rc.Insufficient)

	case vppAuthHostNamePort, vppHostNamePort:
		p.captureHostName(uri, anchor, i)

	case vppIPv4Port:
		if ip++; ip == 4 {
			if err := p.captureIPv4(ipv4); err != nil {
				return nil, err
			}
			break
		}
		return nil, rc.New(rc.Path, rc.Parsing, rc.Data, rc.Insufficient)

	case vppIPv4Dot, vppIPv6Port, vppIPv6Colon, vppPortSpecOrFullPath, vppPortSpec:
		return nil, rc.New(rc.Path, rc.Parsing, rc.Data, rc.Insufficient)

	case vppPortName:
		p.capturePortName(uri, anchor, i)

	case vppPortNum:
		if err := p.capturePortNum(port); err != nil {
			return nil, err
		}

	case vppNamePath:
		p.capturePath(uri, anchor, i, PTName)

	case vppRelPath:
		p.capturePath(uri, anchor, i, PTRelPath)

	case vppUNCOrMalformedPOSIXPath, vppFullOrUNCPath, vppFullPath:
		p.capturePath(uri, anchor, i, PTFullPath)

	case vppUNCPath:
		p.capturePath(uri, anchor, i, PTUNCPath)

	case vppParamName, vppParamValue:
		p.captureQuery(uri, anchor, i)

	case vppFragment:
		p.captureFragment(uri, anchor, i)
	}

	return p, nil
}

// captureScheme records and classifies the scheme text.
func (p *VPath) captureScheme(uri string, start, end int) {
	scheme := uri[start:end]
	p.scheme = scheme
	p.fromURI = true

	if scheme == "" {
		return
	}

	p.schemeType = SchemeNotSupported
	switch {
	case strings.EqualFold(scheme, "file"):
		p.schemeType = SchemeFile
	case strings.EqualFold(scheme, "http"):
		p.schemeType = SchemeHTTP
	case strings.EqualFold(scheme, "https"):
		p.schemeType = SchemeHTTPS
	case strings.EqualFold(scheme, "ftp"):
		p.schemeType = SchemeFTP
	case strings.EqualFold(scheme, "fasp"):
		p.schemeType = SchemeFasp
	case strings.EqualFold(scheme, "ncbi-acc"):
		p.schemeType = SchemeNcbiAcc
	case strings.EqualFold(scheme, "ncbi-obj"):
		p.schemeType = SchemeNcbiObj
	case strings.EqualFold(scheme, "ncbi-file"):
		p.schemeType = SchemeNcbiFile
	case strings.EqualFold(scheme, "ncbi-vfs"):
		p.schemeType = SchemeNcbiVfs
	case strings.EqualFold(scheme, "x-ncbi-legrefseq"):
		p.schemeType = SchemeNcbiLegrefseq
	}
}

func (p *VPath) captureAccession(uri string, start, end int) {
	p.path = uri[start:end]

	switch p.schemeType {
	case SchemeNone:
		if !p.fromURI {
			p.pathType = PTNameOrAccession
			return
		}
		p.pathType = PTName
	case SchemeNcbiAcc:
		if end-start < maxAccessionLen {
			p.pathType = PTAccession
			return
		}
		p.pathType = PTName
	default:
		p.pathType = PTName
	}
}

// captureAccCode packs the accession shape counters and upgrades
// recognized families to PTAccession. The table is domain knowledge:
// refseq and wgs shapes resolve unconditionally, the bare named-annotation
// shape only with an "NA" prefix, and sra run shapes are taken at face value.
func (p *VPath) captureAccCode(accPrefix, accAlpha, accDigit, accExt, accSuffix uint32) {
	p.accCode = accPrefix<<16 | accAlpha<<12 | accDigit<<8 | accExt<<4 | accSuffix

	if p.pathType != PTNameOrAccession {
		return
	}

	switch p.accCode >> 8 {
	case 0x015, 0x026, 0x106, 0x126:
		// refseq
		p.pathType = PTAccession

	case 0x109:
		// refseq or named annotation
		p.pathType = PTAccession

	case 0x036, 0x037, 0x038, 0x039:
		// sra
		p.pathType = PTAccession

	case 0x042, 0x048, 0x049, 0x142, 0x148, 0x149:
		// wgs
		p.pathType = PTAccession

	case 0x029:
		if p.accCode == 0x02910 && strings.HasPrefix(p.path, "NA") {
			// named annotation
			p.pathType = PTAccession
		}
	}
}

func (p *VPath) captureOid(oid uint64, uri string, start, oidStart, end int) {
	oidSize := end - oidStart

	if oid == 0 || oidSize > 10 || oid > 0xFFFFFFFF {
		p.pathType = PTName
	} else {
		p.objID = uint32(oid)

		if p.schemeType == SchemeNcbiObj {
			p.path = uri[oidStart:end]
			p.pathType = PTOID
			return
		}

		p.pathType = PTNameOrOID
	}

	p.path = uri[start:end]
}

func (p *VPath) captureAuth(uri string, start, end int) {
	p.auth = uri[start:end]
	p.pathType = PTAuth
}

func (p *VPath) captureHostName(uri string, start, end int) {
	p.host = uri[start:end]
	p.hostType = HostDNS
	p.pathType = PTHostName
}

func (p *VPath) captureIPv4(ipv4 [4]uint32) error {
	for _, octet := range ipv4 {
		if octet >= 256 {
			return rc.New(rc.Path, rc.Parsing, rc.Data, rc.Excessive)
		}
	}

	p.ipv4 = ipv4[0]<<24 | ipv4[1]<<16 | ipv4[2]<<8 | ipv4[3]
	p.pathType = PTEndpoint
	p.hostType = HostIPv4
	return nil
}

// captureIPv6 expands a '::' marker (zip is the group index it sits at,
// -1 when absent) and packs the eight groups.
func (p *VPath) captureIPv6(groups []uint32, zip int) error {
	if len(groups) > 8 {
		return rc.New(rc.Path, rc.Parsing, rc.Data, rc.Excessive)
	}
	for _, group := range groups {
		if group >= 0x10000 {
			return rc.New(rc.Path, rc.Parsing, rc.Data, rc.Excessive)
		}
	}

	p.ipv6 = [8]uint16{}
	if zip < 0 {
		for g, group := range groups {
			p.ipv6[g] = uint16(group)
		}
	} else {
		for g := 0; g < zip; g++ {
			p.ipv6[g] = uint16(groups[g])
		}
		tail := len(groups) - zip
		for g := 0; g < tail; g++ {
			p.ipv6[8-tail+g] = uint16(groups[zip+g])
		}
	}

	p.pathType = PTEndpoint
	p.hostType = HostIPv6
	return nil
}

func (p *VPath) capturePortName(uri string, start, end int) {
	p.portName = uri[start:end]
	p.pathType = PTEndpoint
}

func (p *VPath) capturePortNum(port uint32) error {
	if port >= 0x10000 {
		return rc.New(rc.Path, rc.Parsing, rc.Data, rc.Excessive)
	}
	p.portNum = uint16(port)
	p.pathType = PTEndpoint
	return nil
}

func (p *VPath) capturePath(uri string, start, end int, pathType PathType) {
	p.path = uri[start:end]
	p.pathType = pathType
}

func (p *VPath) captureQuery(uri string, start, end int) {
	p.query = uri[start:end]
}

func (p *VPath) captureFragment(uri string, start, end int) {
	p.fragment = uri[start:end]
}
