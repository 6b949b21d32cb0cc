package kv

import (
	"fmt"

	"github.com/ValentinKolb/triedb/lib/trie"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.Set([]byte(args[0]), []byte(args[1])); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, ok, err := rpcClient.Get([]byte(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, value=%s\n", args[0], ok, value)
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [key]...",
		Short: "Counts how many of the given keys exist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := rpcClient.Exists(toBytes(args)...)
			if err != nil {
				return err
			}
			fmt.Printf("exists=%d\n", n)
			return nil
		},
	}
	pexistsCmd = &cobra.Command{
		Use:   "pexists [prefix]...",
		Short: "Counts how many of the given prefixes have at least one key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := rpcClient.PExists(toBytes(args)...)
			if err != nil {
				return err
			}
			fmt.Printf("pexists=%d\n", n)
			return nil
		},
	}
	pgetCmd = &cobra.Command{
		Use:   "pget [word]",
		Short: "Lists all keys that are a prefix of word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := rpcClient.PGet([]byte(args[0]))
			if err != nil {
				return err
			}
			printEntries(entries)
			return nil
		},
	}
	pgetlCmd = &cobra.Command{
		Use:   "pgetl [word]",
		Short: "Reads the longest key that is a prefix of word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, ok, err := rpcClient.PGetL([]byte(args[0]))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("word=%s, found=false\n", args[0])
				return nil
			}
			fmt.Printf("word=%s, found=true, key=%s, value=%s\n", args[0], entry.Key, entry.Value)
			return nil
		},
	}
	wpgetCmd = &cobra.Command{
		Use:   "wpget [prefix]",
		Short: "Lists all keys starting with prefix (no prefix lists everything)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var prefix []byte
			if len(args) == 1 {
				prefix = []byte(args[0])
			}
			entries, err := rpcClient.WPGet(prefix)
			if err != nil {
				return err
			}
			printEntries(entries)
			return nil
		},
	}
	flushCmd = &cobra.Command{
		Use:   "flush",
		Short: "Deletes all keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.Flush(); err != nil {
				return err
			}
			fmt.Println("flush successfully")
			return nil
		},
	}
	rawCmd = &cobra.Command{
		Use:   "raw [command] [args]...",
		Short: "Sends any command and prints the raw response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rpcClient.DoString(args...)
			if err != nil {
				return err
			}
			fmt.Println(res.String())
			return nil
		},
	}
	echoCmd = &cobra.Command{
		Use:   "echo [message]",
		Short: "Sends a message that the server returns unchanged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := rpcClient.Echo([]byte(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", msg)
			return nil
		},
	}
)

func toBytes(args []string) [][]byte {
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = []byte(a)
	}
	return out
}

func printEntries(entries []trie.Entry) {
	fmt.Printf("found=%d\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %s=%s\n", e.Key, e.Value)
	}
}
