// Package types holds the JSON shapes shared by the REST and realtime layers.
//
// Realtime protocol over /ws?code=ROOM&username=NAME:
//
//	Client -> Server
//	start, call, close   {}                  host only
//	ticket               {}
//	toggle-mark          {symbol}
//	set-marks            {markedItems}
//	claim                {claimType}
//
//	Server -> Client
//	state                {version, room, ticket?}   on connect; ticket is the caller's own
//	player-joined        {version, player}
//	player-removed       {version, player}
//	game-started         {version}
//	game-closed          {version}
//	code-called          {version, item, meaning}
//	claim-received       {version, player, claimType, message}
//
//	Only to the connection that issued the command:
//	ticket-issued        {version, ticket}
//	marks-updated        {version, ticket}
//	claim-rejected       {version, player, claimType, message}
//	error                {error}
package types
