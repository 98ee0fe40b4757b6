package actions

import (
	"encoding/json"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
)

type toolSpec struct {
	name        string
	description string
	schema      string
}

var specs = []toolSpec{
	{
		name:        ToolLookup,
		description: "Look up a menu item by its exact name. Returns the item details and available modifiers, or suggestions when not found.",
		schema: `{
  "type": "object",
  "properties": {
    "item_name": {"type": "string", "minLength": 1, "description": "Menu item name as the customer said it"}
  },
  "required": ["item_name"],
  "additionalProperties": false
}`,
	},
	{
		name:        ToolAdd,
		description: "Add a menu item confirmed by lookup_menu_item to the order.",
		schema: `{
  "type": "object",
  "properties": {
    "item_id": {"type": "string", "minLength": 1},
    "item_name": {"type": "string"},
    "category_name": {"type": "string"},
    "quantity": {"type": "integer", "maximum": 100, "default": 1},
    "size": {"type": "string", "description": "snack, small, medium, large or regular; omit for the default size"},
    "modifiers": {"type": "array", "items": {"type": "string"}, "description": "modifier_id values from available_modifiers"}
  },
  "required": ["item_id"],
  "additionalProperties": false
}`,
	},
	{
		name:        ToolSummarize,
		description: "Return the current order.",
		schema:      `{"type": "object", "properties": {}, "additionalProperties": false}`,
	},
	{
		name:        ToolFinalize,
		description: "Finalize the order after the customer confirms it. Ends the conversation.",
		schema:      `{"type": "object", "properties": {}, "additionalProperties": false}`,
	},
}

// Tools returns the tool definitions offered to the reasoning step.
func Tools() []llm.Tool {
	out := make([]llm.Tool, 0, len(specs))
	for _, s := range specs {
		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.FunctionDef{
				Name:        s.name,
				Description: s.description,
				Parameters:  json.RawMessage(s.schema),
			},
		})
	}
	return out
}
