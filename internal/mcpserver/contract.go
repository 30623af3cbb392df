package mcpserver

// ActionFormatContract describes the framed directive grammar that
// whiteboard tools emit into the agent token stream.
const ActionFormatContract = `# Vantage Action Format Contract

Whiteboard tools do not mutate the board directly. They return framed
directives that the streaming pipeline extracts from the token stream
and applies.

## Frame grammar

` + "```" + `
<<<KIND:payload:KIND>>>
` + "```" + `

- KIND is STATUS or ACTION. The closing KIND must match the opening one.
- STATUS payload is plain text shown as the agent status indicator.
  An empty payload clears the indicator.
- ACTION payload is a single JSON object (see below). The payload may
  itself contain colons; the frame ends at ` + "`:KIND>>>`" + `.
- Anything outside frames is plain prose and reaches the user verbatim.
- Keep each frame on its own line surrounded by newlines.

## Action JSON

` + "```" + `json
{"type": "<action type>", "data": { ... }}
` + "```" + `

Action types and their data fields:

- ` + "`create_node`" + ` / ` + "`create_research`" + `: title (required),
  node_type, summary, initial_query, data.content for text bodies.
- ` + "`create_chart`" + `: chart {ticker (required), chartType, timeframe, title}.
- ` + "`create_metric`" + `: metric {label (required), value (required), ticker, trend, unit}.
- ` + "`create_company`" + `: company {ticker (required), name, sector, marketCap, price, description}.
- ` + "`connect_nodes`" + `: source_title, target_title (both required), relationship.
  Titles resolve case-insensitively against nodes already on the board.
- ` + "`generate_map`" + `: topic (required), depth.

## Rules

1. Identical actions are applied once per conversation; repeating a
   frame is safe.
2. ` + "`connect_nodes`" + ` is silently skipped when either title does not
   exist yet. Create nodes before connecting them.
3. New nodes are placed automatically; do not invent coordinates.
4. Unknown action types are ignored, so newer tools degrade gracefully
   against older boards.
`
