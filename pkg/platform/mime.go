// ABOUTME: Container type negotiation
// ABOUTME: Preference list and the ffmpeg muxer/encoder each type needs
package platform

// Container types in order of preference
const (
	MIMEWebMOpus = "audio/webm;codecs=opus"
	MIMEWebM     = "audio/webm"
	MIMEOggOpus  = "audio/ogg;codecs=opus"
	MIMEOgg      = "audio/ogg"

	// MIMEFallback is used when no preferred type is supported and the
	// platform recorder picks its own container and codec
	MIMEFallback = "application/octet-stream"
)

// PreferredMIMETypes lists container types in negotiation order
var PreferredMIMETypes = []string{MIMEWebMOpus, MIMEWebM, MIMEOggOpus, MIMEOgg}

// containerSpec is what ffmpeg needs to produce a container type
type containerSpec struct {
	muxer   string
	encoder string // empty lets the muxer choose its default codec
}

var containers = map[string]containerSpec{
	MIMEWebMOpus: {muxer: "webm", encoder: "libopus"},
	MIMEWebM:     {muxer: "webm"},
	MIMEOggOpus:  {muxer: "ogg", encoder: "libopus"},
	MIMEOgg:      {muxer: "ogg"},
	MIMEFallback: {muxer: "matroska"},
}

// capabilities is the set of muxers and encoders an ffmpeg build offers
type capabilities struct {
	muxers   map[string]bool
	encoders map[string]bool
}

func (c capabilities) supports(mimeType string) bool {
	spec, ok := containers[mimeType]
	if !ok {
		return false
	}
	if !c.muxers[spec.muxer] {
		return false
	}
	return spec.encoder == "" || c.encoders[spec.encoder]
}

// negotiate returns the first preferred type c supports
func (c capabilities) negotiate() (string, bool) {
	for _, mime := range PreferredMIMETypes {
		if c.supports(mime) {
			return mime, true
		}
	}
	return "", false
}
