// Package xmlcodec reads and writes the intermediate content format: an XML
// document whose root element wraps a single asset element, and whose nested
// elements map one-to-one onto the members of Go values.
//
//	<ContentDocument xmlns:Framework="ContentGrid.Framework">
//	  <Asset Type="ContentGrid.Graphics.TextureContent">
//	    <Name>wall</Name>
//	    <Tint Type="Framework:Color">FF8040C0</Tint>
//	    <Faces>...</Faces>
//	  </Asset>
//	</ContentDocument>
//
// # Dispatch
//
// Each element is decoded against the Go type its position expects:
//
//  1. A Type attribute overrides the expected type for that element only. The
//     name is looked up in the primitive alias table, then expanded through
//     the namespace prefixes declared on the root element, then searched in
//     the TypeTable by full name and finally by unique short name. Ambiguous
//     short names are rejected.
//  2. Value types (booleans, integers, floats, Guid, TimeSpan and the
//     vecmath tuples) are parsed from whitespace-separated tokens. Colors are
//     hex ARGB in text and ABGR in memory.
//  3. Slices, arrays and maps recurse into Item children; maps use Key and
//     Value children. Slices of value types are one flat token stream chunked
//     by the element arity.
//  4. Strings are returned verbatim after HTML entity decoding.
//  5. Structs are constructed and each child element is assigned to the
//     exported field of the same name (or the name given by a `content`
//     struct tag). An element with Null="true" sets its member to the zero
//     value without looking at its content.
//
// Unknown types and unknown members are invalid content errors naming the
// type and member.
package xmlcodec

// Reserved element and attribute names.
const (
	RootElement  = "ContentDocument"
	AssetElement = "Asset"
	ItemElement  = "Item"
	KeyElement   = "Key"
	ValueElement = "Value"

	TypeAttr = "Type"
	NullAttr = "Null"
)
