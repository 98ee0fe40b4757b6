package actions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/order"
)

// Dispatcher validates raw tool arguments against each tool's JSON Schema
// and runs the matching action. It is safe for concurrent use.
type Dispatcher struct {
	schemas map[string]*jsonschema.Schema
}

func NewDispatcher() (*Dispatcher, error) {
	d := &Dispatcher{schemas: make(map[string]*jsonschema.Schema, len(specs))}
	for _, s := range specs {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("https://drivethru.local/tools/%s.schema.json", s.name)
		if err := c.AddResource(url, strings.NewReader(s.schema)); err != nil {
			return nil, fmt.Errorf("load %s schema: %w", s.name, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", s.name, err)
		}
		d.schemas[s.name] = compiled
	}
	return d, nil
}

// Dispatch runs one tool call and returns its JSON result. Unknown tools and
// arguments that fail the schema yield an ErrorResult rather than an error.
func (d *Dispatcher) Dispatch(name, arguments string, cat *catalog.Catalog, ledger order.Ledger) json.RawMessage {
	schema, ok := d.schemas[name]
	if !ok {
		return encode(ErrorResult{Error: fmt.Sprintf("unknown tool %q", name)})
	}
	args := strings.TrimSpace(arguments)
	if args == "" {
		args = "{}"
	}
	dec := json.NewDecoder(strings.NewReader(args))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return encode(ErrorResult{Error: fmt.Sprintf("%s: arguments are not valid JSON: %v", name, err)})
	}
	if err := schema.Validate(doc); err != nil {
		return encode(ErrorResult{Error: fmt.Sprintf("%s: invalid arguments: %v", name, err)})
	}

	switch name {
	case ToolLookup:
		var in struct {
			ItemName string `json:"item_name"`
		}
		if err := json.Unmarshal([]byte(args), &in); err != nil {
			return encode(ErrorResult{Error: err.Error()})
		}
		return encode(LookupItem(in.ItemName, cat))
	case ToolAdd:
		var req AdditionRequest
		if err := json.Unmarshal([]byte(args), &req); err != nil {
			return encode(ErrorResult{Error: err.Error()})
		}
		return encode(ProposeAddition(req, cat))
	case ToolSummarize:
		return encode(SummarizeOrder(ledger))
	case ToolFinalize:
		return encode(MarkComplete(ledger))
	}
	return encode(ErrorResult{Error: fmt.Sprintf("unknown tool %q", name)})
}

func encode(v any) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return json.RawMessage(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}
