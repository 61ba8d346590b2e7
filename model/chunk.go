package model

type ChunkOverview struct {
	Start    string
	End      string
	Filename string
	Count    int
}

type Pair struct {
	Start uint32
	End   uint32
}

type ChunkIndex = map[string]Pair
