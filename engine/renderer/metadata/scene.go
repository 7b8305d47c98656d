package metadata

import (
	"encoding/binary"
	"math"
)

/** @brief The byte size of a packed Vertex: position xyz followed by uv. */
const VertexSize = 5 * 4

/**
 * @brief Represents a single vertex in 3D space.
 */
type Vertex struct {
	/** @brief The position of the vertex */
	Position [3]float32
	/** @brief The texture coordinate of the vertex. */
	UV [2]float32
}

/**
 * @brief One sub-mesh: an indexed draw into the shared vertex/index arrays.
 */
type DrawRange struct {
	/** @brief Added to every index of the range before fetching a vertex. */
	VertexStart uint32
	/** @brief The first index of the range in the index array. */
	IndexStart uint32
	/** @brief The number of indices in the range. */
	IndexCount uint32
}

/**
 * @brief Flat scene data handed from the loader to the uploader. Read only
 * once uploaded.
 */
type Scene struct {
	Vertices []Vertex
	Indices  []uint32
	Ranges   []DrawRange
	Images   []ImageData
}

// PackVertices lays the vertices out the way the vertex shader reads them.
func PackVertices(vertices []Vertex) []byte {
	out := make([]byte, len(vertices)*VertexSize)
	for i, v := range vertices {
		b := out[i*VertexSize:]
		binary.LittleEndian.PutUint32(b[0:], math.Float32bits(v.Position[0]))
		binary.LittleEndian.PutUint32(b[4:], math.Float32bits(v.Position[1]))
		binary.LittleEndian.PutUint32(b[8:], math.Float32bits(v.Position[2]))
		binary.LittleEndian.PutUint32(b[12:], math.Float32bits(v.UV[0]))
		binary.LittleEndian.PutUint32(b[16:], math.Float32bits(v.UV[1]))
	}
	return out
}

// PackIndices returns the index array as little-endian bytes.
func PackIndices(indices []uint32) []byte {
	out := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(out[i*4:], idx)
	}
	return out
}
