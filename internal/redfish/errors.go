package redfish

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"net/url"

	"github.com/stmcginnis/gofish/common"

	"github.com/amrinderguler/ilo-collector/internal/errors"
)

const (
	// Authentication Errors
	ErrAuthRejected   = errors.ErrorCode("redfish_auth_rejected")
	ErrSessionExpired = errors.ErrorCode("redfish_session_expired")

	// Connectivity and Transport Errors
	ErrUnreachable = errors.ErrorCode("redfish_device_unreachable")
	ErrTLSFailure  = errors.ErrorCode("redfish_tls_failure")

	// Collection Errors
	ErrResourceRead      = errors.ErrorCode("redfish_resource_read_failed")
	ErrPartialCollection = errors.ErrorCode("redfish_partial_collection")
	ErrNoData            = errors.ErrorCode("redfish_no_data_collected")
)

// IsAuthRejected reports whether the device rejected the configured
// credentials. This does not self-correct, so callers treat it as fatal.
func IsAuthRejected(err error) bool {
	return errors.HasCode(err, ErrAuthRejected)
}

// IsSessionExpired reports whether an authenticated call was refused with a
// session the device no longer honors. One re-login is warranted.
func IsSessionExpired(err error) bool {
	return errors.HasCode(err, ErrSessionExpired)
}

// IsPartial reports whether a collection completed with some resources
// missing. The accompanying record is still usable.
func IsPartial(err error) bool {
	return errors.HasCode(err, ErrPartialCollection)
}

// classify maps a transport-level failure to a domain error code. Anything
// unrecognized counts as unreachable: the device's outages are expected to be
// transient and a skipped cycle is recoverable, unlike a halted process.
func classify(err error) errors.ErrorCode {
	var redfishErr *common.Error
	if errors.As(err, &redfishErr) {
		switch redfishErr.HTTPReturnedStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrSessionExpired
		default:
			return ErrResourceRead
		}
	}

	if isTLSFailure(err) {
		return ErrTLSFailure
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ErrUnreachable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrUnreachable
	}

	return ErrUnreachable
}

func isTLSFailure(err error) bool {
	var certVerify *tls.CertificateVerificationError
	if errors.As(err, &certVerify) {
		return true
	}
	var recordHeader tls.RecordHeaderError
	if errors.As(err, &recordHeader) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostname x509.HostnameError
	if errors.As(err, &hostname) {
		return true
	}
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certInvalid) {
		return true
	}

	return false
}
