package tlv

import "strconv"

// FieldType tags the semantic role of a record.
// Values are shared with the harness decoder and must not change.
type FieldType uint16

// Field types understood by the fuzz harness.
const (
	TypeURL           FieldType = 1
	TypeRSP1          FieldType = 2
	TypeUsername      FieldType = 3
	TypePassword      FieldType = 4
	TypePostFields    FieldType = 5
	TypeHeader        FieldType = 6 // repeatable
	TypeCookie        FieldType = 7
	TypeUpload1       FieldType = 8
	TypeRange         FieldType = 9
	TypeCustomRequest FieldType = 10
	TypeMailRecipient FieldType = 11 // repeatable
	TypeMailFrom      FieldType = 12
)

var typeNames = map[FieldType]string{
	TypeURL:           "url",
	TypeRSP1:          "rsp1",
	TypeUsername:      "username",
	TypePassword:      "password",
	TypePostFields:    "postfields",
	TypeHeader:        "header",
	TypeCookie:        "cookie",
	TypeUpload1:       "upload1",
	TypeRange:         "range",
	TypeCustomRequest: "customrequest",
	TypeMailRecipient: "mailrecipient",
	TypeMailFrom:      "mailfrom",
}

// String returns the lowercase field name, or "type(N)" for unknown values.
func (t FieldType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// Valid reports whether t is one of the defined field types.
func (t FieldType) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// Repeatable reports whether the harness accepts several records of type t.
func (t FieldType) Repeatable() bool {
	return t == TypeHeader || t == TypeMailRecipient
}

// Types returns every defined field type in ascending tag order.
func Types() []FieldType {
	out := make([]FieldType, 0, len(typeNames))
	for t := TypeURL; t <= TypeMailFrom; t++ {
		out = append(out, t)
	}
	return out
}
