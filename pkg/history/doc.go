/*
Package history implements the two undo managers of the editor.

Commands keeps a bounded stack of command/inverse pairs. Undo dispatches the recorded
inverse; the inverse of that inverse becomes the redo command, so redo brings back the
same node and slot IDs instead of rebuilding equivalent content. Memory grows with the
size of each edit, not with the size of the document.

Snapshots keeps whole document values. Documents share unchanged nodes and slots, so a
snapshot costs one copy of the two lookup maps. A batch collapses several pushes into a
single entry and a single notification; a failure inside a batch does not roll back the
edits made before it.

Neither type is safe for concurrent use. Observers subscribe explicitly and are told the
new Availability after every operation that can change it.
*/
package history
