package see

// Object is the data model used to represents an object.
type Object map[string]interface{}

// Pos is a position.
type Pos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Message is the message for see.
type Message struct {
	Action string `json:"action"`
	Object Object `json:"object,omitempty"`
}

// Actions
const (
	ActionReset  = "reset"
	ActionObject = "object"
)

// Properties
const (
	PropID     = "id"
	PropType   = "type"
	PropOrigin = "origin"
	PropRadius = "radius"
	PropStyle  = "style"
)

// NewObject creates Object.
func NewObject(typ, id string) Object {
	o := make(Object)
	o[PropID] = id
	o[PropType] = typ
	return o
}

// At sets origin.
func (o Object) At(x, y float64) Object {
	o[PropOrigin] = &Pos{X: x, Y: y}
	return o
}

// Radius sets radius.
func (o Object) Radius(r float64) Object {
	o[PropRadius] = r
	return o
}

// Style sets CSS style.
func (o Object) Style(style string) Object {
	o[PropStyle] = style
	return o
}

// With sets a custom property.
func (o Object) With(key string, val interface{}) Object {
	o[key] = val
	return o
}
