package service

import (
	apperrors "github.com/allisson/trustcore/internal/errors"
)

// EncryptMap encrypts the named fields of a flat value map.
//
// Each requested field "<field>" is removed from the result and replaced with
// an "encrypted<Field>" entry holding the encoded ciphertext. Fields absent
// from the input are skipped. Keys that are not named stay untouched, so
// non-PII attributes pass through unchanged.
//
// Example:
//
//	out, err := engine.EncryptMap(
//	    map[string]string{"email": "a@b.c", "plan": "pro"},
//	    "user-1",
//	    []string{"email"},
//	)
//	// out: {"encryptedEmail": "...", "plan": "pro"}
func (e *Engine) EncryptMap(
	values map[string]string,
	userID string,
	fieldNames []string,
) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}

	for _, name := range fieldNames {
		value, ok := out[name]
		if !ok {
			continue
		}

		encoded, err := e.Encrypt(value, userID, name)
		if err != nil {
			return nil, apperrors.Wrapf(err, "failed to encrypt field %q", name)
		}

		delete(out, name)
		out[EncryptedFieldName(name)] = encoded
	}

	return out, nil
}

// DecryptMap reverses EncryptMap for the named fields.
//
// Each "encrypted<Field>" entry is removed from the result and replaced with a
// plain "<field>" entry holding the decrypted value. Fields whose encrypted
// counterpart is absent are skipped; a failed decryption aborts the whole call
// rather than returning a partially decrypted map.
func (e *Engine) DecryptMap(
	values map[string]string,
	userID string,
	fieldNames []string,
) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}

	for _, name := range fieldNames {
		encryptedName := EncryptedFieldName(name)
		encoded, ok := out[encryptedName]
		if !ok {
			continue
		}

		value, err := e.Decrypt(encoded, userID, name)
		if err != nil {
			return nil, apperrors.Wrapf(err, "failed to decrypt field %q", name)
		}

		delete(out, encryptedName)
		out[name] = value
	}

	return out, nil
}
