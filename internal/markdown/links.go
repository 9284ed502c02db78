package markdown

// LinkKind distinguishes the Markdown constructs a destination came from.
type LinkKind string

const (
	LinkKindInline LinkKind = "inline"
	LinkKindImage  LinkKind = "image"
)

// Link is one outbound destination found in a Markdown body.
type Link struct {
	Kind        LinkKind
	Destination string
}
