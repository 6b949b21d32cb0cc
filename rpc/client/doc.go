// Package client implements the Go client of triedb.
//
// Usage Example:
//
//	c, err := client.Dial(common.ClientConfig{
//	  Transport: common.ClientTransportConfig{
//	    Type:      common.TransportTCP,
//	    Endpoints: []string{"localhost:6380"},
//	  },
//	  TimeoutSecond: 5,
//	})
//	if err != nil { ... }
//	defer c.Close()
//
//	_ = c.Set([]byte("cat"), []byte("meow"))
//	entry, ok, err := c.PGetL([]byte("caterpillar")) // cat, meow
//
// Errors answered by the server (unknown command, invalid key, ...) are returned
// as errs.Error of kind ClientError, network failures as ConnectionError.
package client
