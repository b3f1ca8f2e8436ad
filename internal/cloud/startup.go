package cloud

import (
	"context"
	"fmt"
	"io"
)

// EnsureReady checks that the cloud API answers with the configured key and
// that the answer model is listed upstream. An unlisted model only produces
// a warning; providers route some models they do not list.
func EnsureReady(ctx context.Context, c *Client, model string, w io.Writer) error {
	if model == "" {
		return fmt.Errorf("no answer model configured")
	}

	models, err := c.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("cloud backend unreachable: %w", err)
	}

	for _, m := range models {
		if m.ID == model {
			fmt.Fprintf(w, "model %s: ready\n", model)
			return nil
		}
	}
	fmt.Fprintf(w, "model %s: not in the upstream model list, continuing\n", model)
	return nil
}
