package messages

// SnapshotPacket carries one encoded snapshot.Packet from the server.
type SnapshotPacket struct {
	Data []byte
}

// CommandPacket carries one encoded command.Packet from a client. It also
// acknowledges the snapshots the client has applied.
type CommandPacket struct {
	Data []byte
}

// PrespawnRecords publishes the prespawn id ranges of every loaded subscene.
// Data is a sequence of fixed size prespawn.Record entries.
type PrespawnRecords struct {
	Data []byte
}

// StartStreamingSceneGhosts tells the server the client has loaded the
// subscene and wants its prespawned ghosts.
type StartStreamingSceneGhosts struct {
	SceneHash uint64
}

// StopStreamingSceneGhosts tells the server the client unloaded the subscene.
type StopStreamingSceneGhosts struct {
	SceneHash uint64
}
