/*
Package semtok holds the semantic token model shared by the tokenizer and the
delta engine.

🎨 Semantic Tokens Overview:
---------------------------
On the wire a document's tokens are a flat []uint32 where every five values
form one Record:

	+-----------+----------------+--------+-----------+----------------+
	| deltaLine | deltaStartChar | length | tokenType | tokenModifiers |
	+-----------+----------------+--------+-----------+----------------+

Positions are relative to the previous record, so inserting a token only
changes the record that follows it. That is what makes token level diffs
(see package delta) small.

🔍 Main Components:
-----------------
1. Record model
  - ToRecords / ToFlat convert between the flat array and a Stream
  - MalformedStreamError rejects arrays whose length is not a multiple of 5

2. Tokenizer
  - GetTokensForText walks text/template/parse trees
  - Encode turns absolute tokens into the relative encoding (UTF-16 columns)

3. Legend
  - DefaultLegend lists the token types and modifiers in index order
*/
package semtok
