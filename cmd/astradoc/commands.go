package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/xdbsoft/astradoc"
	"github.com/xdbsoft/astradoc/api"
)

type commandline struct {
	configPath string
	uri        string
	keyspace   string
	logLevel   string
}

func newCommand() *cobra.Command {

	cl := &commandline{}

	cmd := &cobra.Command{
		Use:           "astradoc",
		Short:         "Query and modify the collections of a REST document API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&cl.configPath, "config", "", "configuration file (yaml, toml or json), ASTRA_* environment variables override it")
	cmd.PersistentFlags().StringVar(&cl.uri, "uri", "", "connection string, https://host/keyspace?applicationToken=token")
	cmd.PersistentFlags().StringVar(&cl.keyspace, "keyspace", "", "keyspace to use instead of the one of the connection string")
	cmd.PersistentFlags().StringVar(&cl.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	cmd.AddCommand(
		cl.findCommand(),
		cl.insertCommand(),
		cl.updateCommand(),
		cl.deleteCommand(),
		cl.countCommand(),
		cl.distinctCommand(),
		cl.createCollectionCommand(),
		cl.dropCollectionCommand(),
	)
	return cmd
}

func (cl *commandline) db() (*astradoc.Db, error) {

	var paths []string
	if len(cl.configPath) > 0 {
		paths = append(paths, cl.configPath)
	}
	cfg, err := astradoc.LoadConfig(paths...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load configuration")
	}
	if len(cl.uri) > 0 {
		cfg.URI = cl.uri
	}
	if len(cl.logLevel) > 0 {
		cfg.LogLevel = cl.logLevel
	}
	if len(cl.keyspace) > 0 {
		cfg.Keyspace = cl.keyspace
	}

	client, err := cfg.Connect()
	if err != nil {
		return nil, err
	}
	return client.Db(cl.keyspace)
}

func (cl *commandline) collection(name string) (*astradoc.Collection, error) {
	db, err := cl.db()
	if err != nil {
		return nil, err
	}
	return db.Collection(name)
}

func parseJSON(arg string, v interface{}) error {
	if err := json.Unmarshal([]byte(arg), v); err != nil {
		return errors.Wrapf(err, "invalid JSON argument '%s'", arg)
	}
	return nil
}

func parseFilter(args []string, i int) (astradoc.Filter, error) {
	filter := astradoc.Filter{}
	if len(args) > i {
		if err := parseJSON(args[i], &filter); err != nil {
			return nil, err
		}
	}
	return filter, nil
}

func secondsOf(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (cl *commandline) findCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "find <collection> [filter]",
		Short: "Print the documents matching the filter",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := cl.collection(args[0])
			if err != nil {
				return err
			}
			filter, err := parseFilter(args, 1)
			if err != nil {
				return err
			}
			cursor, err := col.Find(filter, &astradoc.FindOptions{Limit: limit})
			if err != nil {
				return err
			}
			docs, err := cursor.ToArray(contextOf(cmd))
			if err != nil {
				return err
			}
			if docs == nil {
				docs = []api.Document{}
			}
			return printJSON(cmd.OutOrStdout(), docs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of documents, 0 for all")
	return cmd
}

func (cl *commandline) insertCommand() *cobra.Command {
	var ttl int
	cmd := &cobra.Command{
		Use:   "insert <collection> <document>...",
		Short: "Insert documents, an _id is generated for documents without one",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := cl.collection(args[0])
			if err != nil {
				return err
			}
			docs := make([]api.Document, len(args)-1)
			for i, arg := range args[1:] {
				if err := parseJSON(arg, &docs[i]); err != nil {
					return err
				}
			}
			opts := &astradoc.InsertOptions{TTL: secondsOf(ttl)}
			if len(docs) == 1 {
				res, err := col.InsertOne(contextOf(cmd), docs[0], opts)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			}
			res, err := col.InsertMany(contextOf(cmd), docs, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&ttl, "ttl", 0, "time to live of the documents in seconds, 0 to keep them")
	return cmd
}

func (cl *commandline) updateCommand() *cobra.Command {
	var many, upsert bool
	cmd := &cobra.Command{
		Use:   "update <collection> <filter> <update>",
		Short: "Update the first document matching the filter, or all of them with --many",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := cl.collection(args[0])
			if err != nil {
				return err
			}
			filter, err := parseFilter(args, 1)
			if err != nil {
				return err
			}
			var update astradoc.Update
			if err := parseJSON(args[2], &update); err != nil {
				return err
			}
			opts := &astradoc.UpdateOptions{Upsert: upsert, ReturnDocument: astradoc.After}
			var res *astradoc.UpdateResult
			if many {
				res, err = col.UpdateMany(contextOf(cmd), filter, update, opts)
			} else {
				res, err = col.UpdateOne(contextOf(cmd), filter, update, opts)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&many, "many", false, "update every matching document")
	cmd.Flags().BoolVar(&upsert, "upsert", false, "insert a document when none matches")
	return cmd
}

func (cl *commandline) deleteCommand() *cobra.Command {
	var many bool
	cmd := &cobra.Command{
		Use:   "delete <collection> <filter>",
		Short: "Delete the first document matching the filter, or all of them with --many",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := cl.collection(args[0])
			if err != nil {
				return err
			}
			filter, err := parseFilter(args, 1)
			if err != nil {
				return err
			}
			var res *astradoc.DeleteResult
			if many {
				res, err = col.DeleteMany(contextOf(cmd), filter, nil)
			} else {
				res, err = col.DeleteOne(contextOf(cmd), filter, nil)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&many, "many", false, "delete every matching document")
	return cmd
}

func (cl *commandline) countCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "count <collection> [filter]",
		Short: "Print the number of documents matching the filter",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := cl.collection(args[0])
			if err != nil {
				return err
			}
			filter, err := parseFilter(args, 1)
			if err != nil {
				return err
			}
			n, err := col.CountDocuments(contextOf(cmd), filter, nil)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}
}

func (cl *commandline) distinctCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "distinct <collection> <field> [filter]",
		Short: "Print the distinct values of a field among the documents matching the filter",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := cl.collection(args[0])
			if err != nil {
				return err
			}
			filter, err := parseFilter(args, 2)
			if err != nil {
				return err
			}
			values, err := col.Distinct(contextOf(cmd), args[1], filter, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), values)
		},
	}
}

func (cl *commandline) createCollectionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create-collection <name>",
		Short: "Create a collection, nothing happens if it exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := cl.db()
			if err != nil {
				return err
			}
			_, err = db.CreateCollection(contextOf(cmd), args[0])
			return err
		},
	}
}

func (cl *commandline) dropCollectionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drop-collection <name>",
		Short: "Delete a collection and its documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := cl.db()
			if err != nil {
				return err
			}
			_, err = db.DropCollection(contextOf(cmd), args[0])
			return err
		},
	}
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
