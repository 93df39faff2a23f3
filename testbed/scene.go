package testbed

import (
	"encoding/binary"
	gomath "math"

	"github.com/spaghettifunk/ember/engine/audio"
)

const cubeOBJ = `# unit cube
o cube
v -0.5 -0.5  0.5
v  0.5 -0.5  0.5
v  0.5  0.5  0.5
v -0.5  0.5  0.5
v -0.5 -0.5 -0.5
v  0.5 -0.5 -0.5
v  0.5  0.5 -0.5
v -0.5  0.5 -0.5
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn  0  0  1
vn  0  0 -1
vn  1  0  0
vn -1  0  0
vn  0  1  0
vn  0 -1  0
f 1/1/1 2/2/1 3/3/1 4/4/1
f 6/1/2 5/2/2 8/3/2 7/4/2
f 2/1/3 6/2/3 7/3/3 3/4/3
f 5/1/4 1/2/4 4/3/4 8/4/4
f 4/1/5 3/2/5 7/3/5 8/4/5
f 5/1/6 6/2/6 2/3/6 1/4/6
`

const cubeVertexShader = `#version 330 core
layout(location = 0) in vec3 a_position;
layout(location = 1) in vec3 a_normal;
layout(location = 2) in vec2 a_texcoord;

uniform mat4 u_projection;
uniform mat4 u_view;
uniform mat4 u_model;

out vec3 v_normal;
out vec2 v_texcoord;

void main() {
    v_normal = mat3(u_model) * a_normal;
    v_texcoord = a_texcoord;
    gl_Position = u_projection * u_view * u_model * vec4(a_position, 1.0);
}
`

const cubeFragmentShader = `#version 330 core
in vec3 v_normal;
in vec2 v_texcoord;

uniform sampler2D u_diffuse;
uniform sampler2D u_detail;
uniform vec4 u_tint;

out vec4 frag_color;

void main() {
    float light = max(dot(normalize(v_normal), normalize(vec3(0.4, 0.8, 0.6))), 0.25);
    vec4 color = texture(u_diffuse, v_texcoord) * texture(u_detail, v_texcoord * 4.0);
    frag_color = vec4(color.rgb * light, 1.0) * u_tint;
}
`

// checkerboard returns RGBA pixels of a size x size board with cells of
// cell pixels alternating between a and b.
func checkerboard(size, cell int, a, b [4]byte) []byte {
	pixels := make([]byte, 0, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := a
			if (x/cell+y/cell)%2 == 1 {
				c = b
			}
			pixels = append(pixels, c[:]...)
		}
	}
	return pixels
}

// stripes returns a grey RGBA gradient repeating every period pixels.
func stripes(size, period int) []byte {
	pixels := make([]byte, 0, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := byte(180 + 75*((x+y)%period)/period)
			pixels = append(pixels, v, v, v, 255)
		}
	}
	return pixels
}

// chime synthesizes a mono sine tone with a linear fade out.
func chime(sampleRate int, frequency, seconds float64) *audio.Sound {
	frames := int(float64(sampleRate) * seconds)
	samples := make([]byte, frames*audio.BytesPerSample)
	for i := 0; i < frames; i++ {
		t := float64(i) / float64(sampleRate)
		fade := 1 - float64(i)/float64(frames)
		v := gomath.Sin(2*gomath.Pi*frequency*t) * fade * 0.6
		binary.LittleEndian.PutUint16(samples[i*2:], uint16(int16(v*gomath.MaxInt16)))
	}
	return &audio.Sound{Samples: samples, Channels: 1, SampleRate: sampleRate}
}
