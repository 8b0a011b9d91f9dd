package posts

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/freerahn/stockblog/cmd/util"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/freerahn/stockblog/lib/reconcile"
	"github.com/freerahn/stockblog/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"io"
	"os"
	"text/tabwriter"
)

var Logger = logger.GetLogger("cmd")

var (
	putCmd = &cobra.Command{
		Use:   "put",
		Short: "Creates or updates a post",
		Long:  "Creates a post, or updates the post given by --id. Fields not given keep their value on update. --file reads the post as JSON (- for stdin), other flags override its fields.",
		Args:  cobra.NoArgs,
		RunE:  runPut,
	}
	getCmd = &cobra.Command{
		Use:   "get [id]",
		Short: "Prints a post as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := blog.Get(context.Background(), args[0])
			if !ok {
				return store.NewError(store.RetCNotFound, "no post with id "+args[0])
			}
			return printJSON(p)
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printTable(store.Latest(blog.All(context.Background()), 0))
			return nil
		},
	}
	latestCmd = &cobra.Command{
		Use:   "latest",
		Short: "Prints the newest posts as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return printJSON(blog.Latest(context.Background(), limit))
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [id]",
		Short: "Deletes a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := blog.Remove(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			printPush(task.Wait())
			return nil
		},
	}
)

func init() {
	putCmd.Flags().String("file", "", util.WrapString("Read the post from a JSON file (- for stdin)"))
	putCmd.Flags().String("id", "", util.WrapString("Id of the post to update (empty creates a new post)"))
	putCmd.Flags().String("title", "", "Title")
	putCmd.Flags().String("content", "", util.WrapString("Content (HTML)"))
	putCmd.Flags().String("excerpt", "", "Excerpt")
	putCmd.Flags().StringSlice("tags", nil, util.WrapString("Comma separated tags"))
	putCmd.Flags().StringSlice("images", nil, util.WrapString("Comma separated image URLs"))
	putCmd.Flags().String("author", "", "Author")
	putCmd.Flags().String("stock-symbol", "", util.WrapString("Stock code of the referenced company (e.g. 079160)"))
	putCmd.Flags().String("stock-name", "", util.WrapString("Name of the referenced company"))

	latestCmd.Flags().Int("limit", 5, util.WrapString("Number of posts to print (0 = all)"))
}

func runPut(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	flags := cmd.Flags()

	var p post.Post
	if file, _ := flags.GetString("file"); file != "" {
		var err error
		if p, err = readPost(file); err != nil {
			return err
		}
	}

	// update an existing post
	if id, _ := flags.GetString("id"); id != "" {
		if existing, ok := blog.Get(ctx, id); ok && p.ID == "" {
			p = existing
		}
		p.ID = id
	}

	for flag, field := range map[string]*string{
		"title":        &p.Title,
		"content":      &p.Content,
		"excerpt":      &p.Excerpt,
		"author":       &p.Author,
		"stock-symbol": &p.StockSymbol,
		"stock-name":   &p.StockName,
	} {
		if flags.Changed(flag) {
			*field, _ = flags.GetString(flag)
		}
	}
	if flags.Changed("tags") {
		p.Tags, _ = flags.GetStringSlice("tags")
	}
	if flags.Changed("images") {
		p.Images, _ = flags.GetStringSlice("images")
	}

	saved, task, err := blog.Save(ctx, p)
	if err != nil {
		return err
	}
	fmt.Printf("saved %s\n", saved.ID)
	printPush(task.Wait())
	return nil
}

func readPost(file string) (post.Post, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return post.Post{}, err
	}

	var p post.Post
	if err := json.Unmarshal(data, &p); err != nil {
		return post.Post{}, fmt.Errorf("%s is not a post: %w", file, err)
	}
	return p, nil
}

func printPush(res reconcile.PushResult) {
	switch res.Outcome {
	case reconcile.PushSucceeded:
		fmt.Printf("published in %s\n", util.ElapsedString(res.Duration))
	case reconcile.PushSkippedNoCredential:
		fmt.Println("not published: no GitHub token configured (set GITHUB_TOKEN)")
	case reconcile.PushSkippedUnsupported:
		fmt.Println("not published: the backend has no remote")
	default:
		fmt.Printf("not published, kept locally: %v\n", res.Err)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printTable(posts []post.Post) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tSTOCK\tTITLE")
	for _, p := range posts {
		stock := "-"
		if p.HasStock() {
			stock = fmt.Sprintf("%s (%s)", p.StockName, p.StockSymbol)
		}
		created := p.CreatedAt
		if t, ok := p.CreatedTime(); ok {
			created = t.Local().Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, created, stock, p.Title)
	}
	_ = w.Flush()
	fmt.Printf("%d posts\n", len(posts))
}
