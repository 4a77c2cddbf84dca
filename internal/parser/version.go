package parser

import (
	"fmt"
	"strconv"

	"mapreader/internal/tokenizer"
)

// CheckVersion consumes the "Version <float>" header and compares it with
// required using exact equality. It returns the version found.
func CheckVersion(tok *tokenizer.Tokenizer, required float32) (float32, error) {
	if err := tok.AssertNext(VersionKeyword); err != nil {
		return 0, versionSyntax(err)
	}

	num, err := tok.Require("map version number")
	if err != nil {
		return 0, versionSyntax(err)
	}

	parsed, err := strconv.ParseFloat(num.Text, 32)
	if err != nil {
		return 0, versionSyntax(fmt.Errorf("could not recognise map version number format %q: %w", num.Text, err))
	}

	found := float32(parsed)
	if found != required {
		return found, &FatalError{
			Kind:           KindVersionMismatch,
			EntityIndex:    NoIndex,
			PrimitiveIndex: NoIndex,
			Found:          found,
			Required:       required,
		}
	}
	return found, nil
}

func versionSyntax(err error) *FatalError {
	return &FatalError{
		Kind:           KindVersionSyntax,
		EntityIndex:    NoIndex,
		PrimitiveIndex: NoIndex,
		Err:            err,
	}
}
