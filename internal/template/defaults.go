package template

import "fmt"

// PlainType renders subject/body/action url straight out of the item data.
// Hosting applications register richer templates next to it at startup.
const PlainType = "plain"

// RegisterDefaults installs the built-in template types.
func RegisterDefaults(r *Registry) error {
	return r.Register(PlainType, plainFactory)
}

func plainFactory(ctx RenderContext) (Renderer, error) {
	subject := stringField(ctx.Item.Data, "subject")
	body := stringField(ctx.Item.Data, "body")
	actionURL := stringField(ctx.Item.Data, "action_url")
	if subject == "" && body == "" {
		return nil, fmt.Errorf("plain template requires a subject or body")
	}

	return func(rc RecipientContext) (*Message, error) {
		msg := &Message{Content: MessageContent{
			Subject:   subject,
			Body:      body,
			ActionURL: actionURL,
		}}
		if rc.Name != "" {
			msg.Content.Body = fmt.Sprintf("Hi %s,\n\n%s", rc.Name, body)
		}
		return msg, nil
	}, nil
}

func stringField(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}
	value, _ := data[key].(string)
	return value
}
