package httpclient

import (
	stderrors "errors"
	"net/http"

	"github.com/kart-io/knowledge-clone/pkg/errors"
)

// Classify maps an outbound call failure onto the service error taxonomy:
// 401/403 become ErrAuth, any other status ErrUpstream, transport failures
// ErrNetwork. Errors that already carry an Errno are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var errno *errors.Errno
	if stderrors.As(err, &errno) {
		return err
	}

	var se *StatusError
	if stderrors.As(err, &se) {
		if se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden {
			return errors.ErrAuth.WithCause(err)
		}
		return errors.ErrUpstream.WithCause(err)
	}

	var te *TransportError
	if stderrors.As(err, &te) {
		return errors.ErrNetwork.WithCause(err)
	}

	return errors.ErrUpstream.WithCause(err)
}
