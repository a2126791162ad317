package citation

// Kind identifies which of the seven citation shapes a Citation was parsed
// from, matching the tagged-variant model in the data model spec.
type Kind string

const (
	KindFileIDAttachment Kind = "file_id_attachment"
	KindSedimentPointer  Kind = "sediment_pointer"
	KindFileServicePointer Kind = "file_service_pointer"
	KindDalleAsset       Kind = "dalle_asset"
	KindInlineName       Kind = "inline_name"
	KindInlineUUID       Kind = "inline_uuid"
	KindInlineFileID     Kind = "inline_file_id"
)

// Citation is one reference to media found inside a message.
type Citation struct {
	ConversationID string
	MessageID      string
	Kind           Kind
	Payload        string // the literal token extracted (file-id, hash, name, uuid)

	Size     int64  // expected byte size, when known
	GenID    string // generator-id, when known (dalle pointers)
	Name     string // original name, when known
}
