package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dkeye/mediagate/internal/domain"
)

// CanConsume reports whether an endpoint declaring caps can receive a stream
// sent with params. The first media codec of the stream decides.
func CanConsume(params domain.RtpParameters, caps domain.RtpCapabilities) bool {
	media := params.MediaCodecs()
	if len(media) == 0 {
		return false
	}
	_, ok := caps.Find(media[0])
	return ok
}

// ConsumerRtpParameters derives what a consumer receives from the producer's
// parameters and the consuming endpoint's capabilities. Encodings carry no
// ssrc; engines assign their own.
func ConsumerRtpParameters(producer domain.RtpParameters, caps domain.RtpCapabilities) (domain.RtpParameters, error) {
	out := domain.RtpParameters{
		Rtcp: domain.RtcpParameters{Cname: producer.Rtcp.Cname, ReducedSize: true},
	}
	for _, codec := range producer.MediaCodecs() {
		match, ok := caps.Find(codec)
		if !ok {
			continue
		}
		c := codec
		if match.PreferredPayloadType != 0 {
			c.PayloadType = match.PreferredPayloadType
		}
		c.RtcpFeedback = slices.Clone(match.RtcpFeedback)
		out.Codecs = append(out.Codecs, c)
		break
	}
	if len(out.Codecs) == 0 {
		return domain.RtpParameters{}, fmt.Errorf("%w: no common codec", ErrIncompatibleCapabilities)
	}
	kind := domain.KindOfMime(out.Codecs[0].MimeType)
	for _, ext := range producer.HeaderExtensions {
		if slices.ContainsFunc(caps.HeaderExtensions, func(h domain.RtpHeaderExtension) bool {
			return strings.EqualFold(h.URI, ext.URI) && (h.Kind == "" || h.Kind == kind)
		}) {
			out.HeaderExtensions = append(out.HeaderExtensions, ext)
		}
	}
	out.Encodings = []domain.RtpEncodingParameters{{}}
	return out, nil
}
