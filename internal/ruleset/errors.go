package ruleset

import "fmt"

// ParseError reports a document that failed to decode.
type ParseError struct {
	File    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.File, e.Message)
}

// NotFoundError reports a required document missing from the rules directory.
type NotFoundError struct {
	Document string
	Dir      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %s not found in %s", e.Document, e.Dir)
}
