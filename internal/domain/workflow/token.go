package workflow

import "strings"

// Task tokens have the form <executionID>.<secret>. Only a hash of the secret
// is stored with the execution.

func formatTaskToken(executionID, secret string) string {
	return executionID + "." + secret
}

func parseTaskToken(token string) (executionID, secret string, err error) {
	executionID, secret, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || executionID == "" || secret == "" {
		return "", "", ErrInvalidTaskToken
	}
	return executionID, secret, nil
}
