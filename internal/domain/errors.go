package domain

import "errors"

var (
	// ErrAuthenticationRequired is returned for any non-authenticate frame
	// received on a connection that has not authenticated.
	ErrAuthenticationRequired = errors.New("not authenticated")

	// ErrRecipientListEmpty is returned when sealing for zero recipients.
	ErrRecipientListEmpty = errors.New("recipient list is empty")

	// ErrKeyImport is returned when a serialized key cannot be parsed.
	ErrKeyImport = errors.New("malformed key material")

	// ErrNotARecipient is returned when an envelope carries no wrapped key
	// for the principal attempting to open it.
	ErrNotARecipient = errors.New("envelope has no wrapped key for this principal")

	// ErrUnwrapFailed is returned when the per-recipient key unwrap fails
	// (wrong private key or corrupted wrapped key).
	ErrUnwrapFailed = errors.New("content key unwrap failed")

	// ErrAuthenticationFailed is returned when the AEAD tag over the
	// content does not verify.
	ErrAuthenticationFailed = errors.New("content authentication failed")

	// ErrCannotDecrypt is the opaque decrypt failure exposed at trust
	// boundaries. See RedactDecrypt.
	ErrCannotDecrypt = errors.New("cannot decrypt")

	// ErrConversationNotFound is returned when a conversation id resolves
	// to nothing.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrMessageNotFound is returned when a message id resolves to nothing.
	ErrMessageNotFound = errors.New("message not found")

	// ErrPrincipalNotFound is returned when a principal id resolves to
	// nothing.
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrTransportClosed is returned when sending on a session that is not
	// open and authenticated.
	ErrTransportClosed = errors.New("transport is not ready")

	// ErrReconnectExhausted is surfaced after the reconnect loop gives up.
	// The caller must reconnect explicitly; there is no silent retry past
	// the bound.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

// RedactDecrypt folds the two distinct decrypt failures into the single
// opaque ErrCannotDecrypt. Which step failed must never be observable
// outside the process; keeping them distinct internally is for tests only.
func RedactDecrypt(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnwrapFailed) || errors.Is(err, ErrAuthenticationFailed) {
		return ErrCannotDecrypt
	}
	return err
}
