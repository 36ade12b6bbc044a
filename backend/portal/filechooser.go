package portal

import (
	"context"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-portal-test/backend/internal/dbus"
)

type choiceOption struct {
	ID    string
	Label string
}

func (c *Client) SaveFile(ctx context.Context, opts SaveOptions) (SaveResult, error) {
	dict := map[string]dbus.Variant{
		"modal": dbus.MakeVariant(true),
	}
	if opts.CurrentName != "" {
		dict["current_name"] = dbus.MakeVariant(opts.CurrentName)
	}
	if len(opts.Choices) > 0 {
		dict["choices"] = dbus.MakeVariant(encodeChoices(opts.Choices))
	}

	resp, err := c.request(ctx, c.desktop(), FILECHOOSER_SAVE_FILE, c.parent, opts.Title, dict)
	if err != nil {
		return SaveResult{}, err
	}
	return SaveResult{
		URIs:    idbus.MapStrings(resp.results, "uris"),
		Choices: decodeChoices(resp.results["choices"]),
	}, nil
}

// encodedChoice marshals as the (ssa(ss)s) struct of the "choices" option.
type encodedChoice struct {
	ID      string
	Label   string
	Options []choiceOption
	Default string
}

func encodeChoices(choices []Choice) []encodedChoice {
	out := make([]encodedChoice, 0, len(choices))
	for _, ch := range choices {
		opts := make([]choiceOption, 0, len(ch.Options))
		for _, o := range ch.Options {
			opts = append(opts, choiceOption{ID: o[0], Label: o[1]})
		}
		out = append(out, encodedChoice{ID: ch.ID, Label: ch.Label, Options: opts, Default: ch.Default})
	}
	return out
}

// decodeChoices reads the a(ss) selection returned by the dialog.
func decodeChoices(v dbus.Variant) map[string]string {
	out := map[string]string{}
	switch raw := v.Value().(type) {
	case [][]interface{}:
		for _, pair := range raw {
			addChoice(out, pair)
		}
	case []interface{}:
		for _, e := range raw {
			if pair, ok := e.([]interface{}); ok {
				addChoice(out, pair)
			}
		}
	}
	return out
}

func addChoice(out map[string]string, pair []interface{}) {
	if len(pair) != 2 {
		return
	}
	id, okID := pair[0].(string)
	value, okValue := pair[1].(string)
	if okID && okValue {
		out[id] = value
	}
}
