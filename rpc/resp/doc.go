/*
Package resp implements the wire codec used between triedb clients and servers.

The format is a subset of the Redis serialization protocol (RESP2). Every value
starts with a one byte tag and ends with CRLF:

	+OK\r\n                 simple string
	-not ready\r\n          error
	:42\r\n                 integer
	$5\r\nhello\r\n         bulk string ($-1 is the nil bulk string)
	*2\r\n$1\r\na\r\n$1\r\nb\r\n  array (*-1 is the nil array)

Requests are arrays of bulk strings, the first element names the command.

Decoding is done with a Reader, which can bound the wait for the first byte of
every message (see NewReaderTimeout). Encoding is done with Marshal or Encode,
which accept Message values as well as plain Go values:

	buf, err := resp.Marshal([][]byte{[]byte("GET"), []byte("key")})

Encode never writes a partial frame: the whole value is marshalled before the
first byte is written.
*/
package resp
