/*
Package delta answers semantic token requests with edit scripts.

	 tokenizer           resultcache
	     |                   ^  |
	     v                   |  v
	+---------+  update  +---------+
	| Engine  | -------> |  Store  |
	+---------+ <------- +---------+
	     |        get(previous id)
	     v
	 lcs.Align (old records, new records)
	     |
	     v
	 Compact -> []Edit  {start, deleteCount, data}

Edits are expressed against the previous stream: Start and DeleteCount count
uint32 values, always in multiples of five.
*/
package delta
