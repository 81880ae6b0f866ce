package domain

import "strings"

// ChannelType identifies the wire protocol an upstream provider speaks.
type ChannelType string

const (
	ChannelTypeOpenAI    ChannelType = "openai"
	ChannelTypeAzure     ChannelType = "azure"
	ChannelTypeAnthropic ChannelType = "anthropic"
	ChannelTypeGoogle    ChannelType = "google"
	ChannelTypeCustom    ChannelType = "custom"
)

// ChannelStatus is the administrative state of a channel.
type ChannelStatus int

const (
	ChannelStatusDisabled ChannelStatus = iota
	ChannelStatusEnabled
	ChannelStatusTesting
)

// Channel is an upstream provider configuration. Channels are created and
// updated by administration; the relay engine only reads them.
type Channel struct {
	ID       int64
	Name     string
	Type     ChannelType
	Key      string
	BaseURL  string
	Models   string            // comma-delimited allow-list, "*" admits every model
	ModelMap map[string]string // requested model -> upstream model
	Status   ChannelStatus
	Priority int
	Weight   int
}

// ServesModel reports whether the channel's allow-list admits model.
func (c *Channel) ServesModel(model string) bool {
	for _, m := range strings.Split(c.Models, ",") {
		m = strings.TrimSpace(m)
		if m == "*" || m == model {
			return true
		}
	}
	return false
}

// ModelList returns the individual entries of the allow-list, trimmed,
// excluding the wildcard.
func (c *Channel) ModelList() []string {
	var out []string
	for _, m := range strings.Split(c.Models, ",") {
		m = strings.TrimSpace(m)
		if m != "" && m != "*" {
			out = append(out, m)
		}
	}
	return out
}

// UpstreamModel applies the channel's model remap table. A model without a
// mapping entry passes through unchanged.
func (c *Channel) UpstreamModel(model string) string {
	if mapped, ok := c.ModelMap[model]; ok && mapped != "" {
		return mapped
	}
	return model
}
