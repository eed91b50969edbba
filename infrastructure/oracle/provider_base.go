package oracle

// baseProvider carries the model name shared by every provider
// implementation and satisfies the GetModel/SetModel half of CoreModel.
type baseProvider struct {
	model string
}

// GetModel returns the currently configured model name.
func (p *baseProvider) GetModel() string { return p.model }

// SetModel updates the model for subsequent requests.
func (p *baseProvider) SetModel(model string) { p.model = model }
