package tenant

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
)

// sin 0/O ni 1/I para que el código se pueda dictar
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newSecurityCode(length int) (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generar código de seguridad: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// codesMatch compara sin distinguir mayúsculas ni espacios alrededor, en tiempo constante.
func codesMatch(stored, given string) bool {
	a := strings.ToUpper(strings.TrimSpace(stored))
	b := strings.ToUpper(strings.TrimSpace(given))
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
