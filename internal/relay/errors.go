package relay

import (
	"crypto/tls"
	"errors"
	"net"
)

// ErrConnect matches every *ConnectError through errors.Is.
var ErrConnect = errors.New("cannot connect to host")

// ConnectError reports that no connection to the upstream host could be
// established: DNS, dial or TLS handshake failures.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return ErrConnect.Error() + ": " + e.Err.Error()
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

func (e *ConnectError) Is(target error) bool {
	return target == ErrConnect
}

// FetchError is any other failure met before the upstream status and
// headers were received. Its text is the underlying error text.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// classify sorts an error returned by http.Client.Do into ConnectError
// or FetchError.
func classify(err error) error {
	var (
		dnsErr    *net.DNSError
		opErr     *net.OpError
		certErr   *tls.CertificateVerificationError
		recordErr tls.RecordHeaderError
	)

	switch {
	case errors.As(err, &dnsErr),
		errors.As(err, &certErr),
		errors.As(err, &recordErr),
		errors.As(err, &opErr) && opErr.Op == "dial":
		return &ConnectError{Err: err}
	default:
		return &FetchError{Err: err}
	}
}
