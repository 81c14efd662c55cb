package container

/*

# Tagged container iteration

This package walks self-describing binary containers: a fixed container
header followed by a sequence of (item header, payload) pairs.

It follows the same style as the other format packages in this module:

- explicit byte layouts, decoded by a per-format Traits implementation
- offset arithmetic on caller provided storage, never pointer arithmetic
- payloads are views into the backing storage, not copies

## Layout

	+----------------------+  offset 0
	| container header     |  declares the length of all items
	+----------------------+  aligned
	| item header 0        |
	| payload 0 + padding  |  (embedded formats only)
	+----------------------+  aligned
	| item header 1        |
	| ...                  |
	+----------------------+  header size + declared length

Formats whose items reference payloads elsewhere in the storage (for example
a directory whose entries carry data offsets) report an external payload
Extent. External payloads are checked against the storage size rather than
the container limit.

## Error protocol

Iteration stops at the first structural problem, after yielding every item
that was valid up to that point. The error is recorded on the View and must
be collected with TakeError once per Begin:

	it := view.Begin()
	for it.Next() {
		item := it.Item()
		...
	}
	if err := view.TakeError(); err != nil {
		...
	}

Calling Begin again without collecting the previous error is a programming
error and panics. Items offers the same walk as a range-over-func sequence
which reports the terminal error as its last element, and collects it on the
caller's behalf.

All length and offset arithmetic is carried out in 64 bits (add, then
compare) because the declared lengths come from untrusted input.

*/
