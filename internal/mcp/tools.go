package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchLibraryTool defines the search_library MCP tool.
var searchLibraryTool = mcp.NewTool("search_library",
	mcp.WithDescription("Search the books the reader is subscribed to. Returns relevant passages with their source locations."),
	mcp.WithNumber("reader_id",
		mcp.Required(),
		mcp.Description("ID of the reader on whose behalf the search runs; results are limited to their subscriptions"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default 5)"),
	),
)

// askLibraryTool defines the ask_library MCP tool.
var askLibraryTool = mcp.NewTool("ask_library",
	mcp.WithDescription("Ask a question answered from the reader's subscribed books, with cited sources."),
	mcp.WithNumber("reader_id",
		mcp.Required(),
		mcp.Description("ID of the reader on whose behalf the question is asked"),
	),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question to answer"),
	),
)

// listDocumentsTool defines the list_documents MCP tool.
var listDocumentsTool = mcp.NewTool("list_documents",
	mcp.WithDescription("List documents in the library, optionally filtered by author or processing status."),
	mcp.WithNumber("author_id",
		mcp.Description("Only list documents by this author"),
	),
	mcp.WithString("status",
		mcp.Description("Only list documents in this processing status"),
		mcp.Enum("pending", "chunking", "embedding", "ready", "failed"),
	),
)
