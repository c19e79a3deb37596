/*
Package codec reads and writes documents and commands.

Documents are stored as JSON or YAML with the fields version, rootNodeId, nodes and
slots. JSON input may carry comments and trailing commas. Decoding only restores the
structure; Normalize runs every node's props through its component so that numbers
read as float64 come back as the typed values the engine produces.

Commands travel in an envelope {"type": "...", "payload": {...}}. A Batch payload is
{"commands": [envelope, ...]}.
*/
package codec
