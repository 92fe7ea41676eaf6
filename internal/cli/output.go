package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chambrid/xtream-desk/pkg/xtream"
)

// envelopeError marks a command whose envelope reported failure. The
// envelope itself has already been printed.
type envelopeError struct {
	message string
}

func (e *envelopeError) Error() string {
	return e.message
}

// printEnvelope writes resp in the selected output format. In table mode a
// successful response is rendered by table; a nil table falls back to
// indented JSON of the data. A failed envelope becomes the command error;
// only in JSON mode has it been printed already.
func printEnvelope[T any](a *app, cmd *cobra.Command, resp xtream.APIResponse[T], table func(io.Writer, T) error) error {
	out := cmd.OutOrStdout()

	if a.flags.output == outputTable {
		data, ok := resp.Unwrap()
		if !ok {
			return errors.New(resp.ErrorMessage())
		}
		if table != nil {
			return table(out, data)
		}
		return writeJSON(out, data)
	}

	if err := writeJSON(out, resp); err != nil {
		return err
	}
	if !resp.Success {
		return &envelopeError{message: resp.ErrorMessage()}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// IsEnvelopeError reports whether err came from a failed envelope that was
// already written to stdout
func IsEnvelopeError(err error) bool {
	var envErr *envelopeError
	return errors.As(err, &envErr)
}
