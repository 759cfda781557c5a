package ctl

import (
	"encoding/json"
	"flag"
	"fmt"

	"github.com/mitchellh/cli"

	"github.com/maruel/jsonstore/internal/jsonval"
	"github.com/maruel/jsonstore/internal/server/dto"
)

// GetCommand prints a document.
type GetCommand struct{ *baseCommand }

func (c *GetCommand) Synopsis() string { return "Print a document" }

func (c *GetCommand) Help() string {
	return help(`Usage: jsonstorectl get [options] <id>`, c.flagSet("get"))
}

func (c *GetCommand) Run(args []string) int {
	rest, ok := c.parse(c.flagSet("get"), args, 1)
	if !ok {
		return 1
	}
	id, ok := c.parseID(rest[0])
	if !ok {
		return 1
	}
	cl, ctx, cancel, err := c.client()
	if err != nil {
		return c.fail(err)
	}
	defer cancel()
	doc, err := cl.Get(ctx, id)
	if err != nil {
		return c.fail(err)
	}
	return c.output(doc)
}

// CreateCommand stores a new document.
type CreateCommand struct{ *baseCommand }

func (c *CreateCommand) Synopsis() string { return "Create a document" }

func (c *CreateCommand) Help() string {
	return help(`Usage: jsonstorectl create [options] <json object | ->

  Creates a document from a JSON object and prints it with its new id.`, c.flagSet("create"))
}

func (c *CreateCommand) Run(args []string) int {
	rest, ok := c.parse(c.flagSet("create"), args, 1)
	if !ok {
		return 1
	}
	raw, err := c.readJSON(rest[0])
	if err != nil {
		return c.fail(err)
	}
	var data map[string]jsonval.Value
	if err := json.Unmarshal(raw, &data); err != nil {
		return c.fail(fmt.Errorf("document must be a JSON object: %w", err))
	}
	cl, ctx, cancel, err := c.client()
	if err != nil {
		return c.fail(err)
	}
	defer cancel()
	doc, err := cl.Create(ctx, data)
	if err != nil {
		return c.fail(err)
	}
	return c.output(doc)
}

// PatchCommand applies add/replace/remove operations.
type PatchCommand struct{ *baseCommand }

func (c *PatchCommand) Synopsis() string { return "Apply patch operations to a document" }

func (c *PatchCommand) Help() string {
	return help(`Usage: jsonstorectl patch [options] <id> <operations | ->

  Operations are a JSON array such as
  [{"op":"replace","path":"/a/b","value":1},{"op":"remove","path":"/c"}]`, c.flagSet("patch"))
}

func (c *PatchCommand) Run(args []string) int {
	rest, ok := c.parse(c.flagSet("patch"), args, 2)
	if !ok {
		return 1
	}
	id, ok := c.parseID(rest[0])
	if !ok {
		return 1
	}
	raw, err := c.readJSON(rest[1])
	if err != nil {
		return c.fail(err)
	}
	var ops []dto.PatchOperation
	if err := json.Unmarshal(raw, &ops); err != nil {
		return c.fail(fmt.Errorf("operations must be a JSON array: %w", err))
	}
	cl, ctx, cancel, err := c.client()
	if err != nil {
		return c.fail(err)
	}
	defer cancel()
	doc, err := cl.Patch(ctx, id, ops)
	if err != nil {
		return c.fail(err)
	}
	return c.output(doc)
}

// MergeCommand applies a JSON merge patch.
type MergeCommand struct{ *baseCommand }

func (c *MergeCommand) Synopsis() string { return "Apply a JSON merge patch to a document" }

func (c *MergeCommand) Help() string {
	return help(`Usage: jsonstorectl merge [options] <id> <merge patch | ->`, c.flagSet("merge"))
}

func (c *MergeCommand) Run(args []string) int {
	rest, ok := c.parse(c.flagSet("merge"), args, 2)
	if !ok {
		return 1
	}
	id, ok := c.parseID(rest[0])
	if !ok {
		return 1
	}
	raw, err := c.readJSON(rest[1])
	if err != nil {
		return c.fail(err)
	}
	cl, ctx, cancel, err := c.client()
	if err != nil {
		return c.fail(err)
	}
	defer cancel()
	doc, err := cl.Merge(ctx, id, raw)
	if err != nil {
		return c.fail(err)
	}
	return c.output(doc)
}

// DeleteCommand deletes a document.
type DeleteCommand struct{ *baseCommand }

func (c *DeleteCommand) Synopsis() string { return "Delete a document" }

func (c *DeleteCommand) Help() string {
	return help(`Usage: jsonstorectl delete [options] <id>`, c.flagSet("delete"))
}

func (c *DeleteCommand) Run(args []string) int {
	rest, ok := c.parse(c.flagSet("delete"), args, 1)
	if !ok {
		return 1
	}
	id, ok := c.parseID(rest[0])
	if !ok {
		return 1
	}
	cl, ctx, cancel, err := c.client()
	if err != nil {
		return c.fail(err)
	}
	defer cancel()
	if err := cl.Delete(ctx, id); err != nil {
		return c.fail(err)
	}
	return 0
}

// SearchCommand lists documents matching a filter.
type SearchCommand struct {
	*baseCommand
	flagWhere string
}

func (c *SearchCommand) Synopsis() string { return "List documents matching a filter" }

func (c *SearchCommand) flags() *flag.FlagSet {
	f := c.flagSet("search")
	f.StringVar(&c.flagWhere, "where", "", `Filter expression, e.g. data.score > 10. Empty lists everything.`)
	return f
}

func (c *SearchCommand) Help() string {
	return help(`Usage: jsonstorectl search [options]`, c.flags())
}

func (c *SearchCommand) Run(args []string) int {
	if _, ok := c.parse(c.flags(), args, 0); !ok {
		return 1
	}
	cl, ctx, cancel, err := c.client()
	if err != nil {
		return c.fail(err)
	}
	defer cancel()
	docs, err := cl.Search(ctx, c.flagWhere)
	if err != nil {
		return c.fail(err)
	}
	return c.output(docs)
}

// DeleteWhereCommand deletes documents matching a filter.
type DeleteWhereCommand struct {
	*baseCommand
	flagWhere string
}

func (c *DeleteWhereCommand) Synopsis() string { return "Delete documents matching a filter" }

func (c *DeleteWhereCommand) flags() *flag.FlagSet {
	f := c.flagSet("delete-where")
	f.StringVar(&c.flagWhere, "where", "", "(Required) Filter expression.")
	return f
}

func (c *DeleteWhereCommand) Help() string {
	return help(`Usage: jsonstorectl delete-where -where=<expr> [options]`, c.flags())
}

func (c *DeleteWhereCommand) Run(args []string) int {
	if _, ok := c.parse(c.flags(), args, 0); !ok {
		return 1
	}
	if c.flagWhere == "" {
		c.UI.Error("where flag is required")
		return 1
	}
	cl, ctx, cancel, err := c.client()
	if err != nil {
		return c.fail(err)
	}
	defer cancel()
	n, err := cl.DeleteWhere(ctx, c.flagWhere)
	if err != nil {
		return c.fail(err)
	}
	return c.output(dto.DeleteWhereResponse{Deleted: n})
}

// CountCommand prints the number of documents.
type CountCommand struct{ *baseCommand }

func (c *CountCommand) Synopsis() string { return "Print the number of documents" }

func (c *CountCommand) Help() string {
	return help(`Usage: jsonstorectl count [options]`, c.flagSet("count"))
}

func (c *CountCommand) Run(args []string) int {
	if _, ok := c.parse(c.flagSet("count"), args, 0); !ok {
		return 1
	}
	cl, ctx, cancel, err := c.client()
	if err != nil {
		return c.fail(err)
	}
	defer cancel()
	n, err := cl.Count(ctx)
	if err != nil {
		return c.fail(err)
	}
	c.UI.Output(fmt.Sprint(n))
	return 0
}

// HealthCommand checks that the server is up.
type HealthCommand struct{ *baseCommand }

func (c *HealthCommand) Synopsis() string { return "Check the server health" }

func (c *HealthCommand) Help() string {
	return help(`Usage: jsonstorectl health [options]`, c.flagSet("health"))
}

func (c *HealthCommand) Run(args []string) int {
	if _, ok := c.parse(c.flagSet("health"), args, 0); !ok {
		return 1
	}
	cl, ctx, cancel, err := c.client()
	if err != nil {
		return c.fail(err)
	}
	defer cancel()
	h, err := cl.Health(ctx)
	if err != nil {
		return c.fail(err)
	}
	return c.output(h)
}

// VersionCommand prints the client version.
type VersionCommand struct {
	UI cli.Ui
}

func (c *VersionCommand) Synopsis() string { return "Print the version" }

func (c *VersionCommand) Help() string { return "Usage: jsonstorectl version" }

func (c *VersionCommand) Run(args []string) int {
	c.UI.Output("jsonstorectl " + Version)
	return 0
}
