package imagery

// Rect is an axis-aligned box in CSS pixels
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right edge
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom edge
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Expand grows the box by margin on every side
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		X:      r.X - margin,
		Y:      r.Y - margin,
		Width:  r.Width + 2*margin,
		Height: r.Height + 2*margin,
	}
}

// Intersects reports whether the two boxes overlap or touch
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.Right() && o.X <= r.Right() &&
		r.Y <= o.Bottom() && o.Y <= r.Bottom()
}

// Loading is the native loading hint
type Loading string

const (
	LoadingEager Loading = "eager"
	LoadingLazy  Loading = "lazy"
)

// Element is what the host renders for one image instance
type Element struct {
	Src     string  `json:"src"`
	SrcSet  string  `json:"srcset,omitempty"`
	Sizes   string  `json:"sizes"`
	Alt     string  `json:"alt"`
	Loading Loading `json:"loading"`
	Width   int     `json:"width,omitempty"`
	Height  int     `json:"height,omitempty"`
	Fill    bool    `json:"fill"`
	Layers  *Layers `json:"layers,omitempty"`
	State   State   `json:"state"`
}
