package kernel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/flame/internal/resource"
)

// Workgroup edge of the sampling pass. Must match resource.Grid.
const workgroupEdge = resource.GridWorkgroup

func generate(p *Program) string {
	var b strings.Builder

	b.WriteString("// Generated fractal flame sampling kernel.\n\n")
	b.WriteString(resource.UniformsWGSL)
	fmt.Fprintf(&b, "\n@group(0) @binding(%d) var<uniform> u: FrameUniforms;\n", resource.SlotUniforms)
	fmt.Fprintf(&b, "@group(0) @binding(%d) var<storage, read_write> hist: array<atomic<u32>>;\n\n", resource.SlotHistogram)

	b.WriteString("const PI: f32 = 3.141592653589793;\n")
	fmt.Fprintf(&b, "const ITERATIONS: u32 = %du;\n", p.iters)
	fmt.Fprintf(&b, "const WARMUP: u32 = %du;\n\n", p.warmup)
	b.WriteString(pcgWGSL)

	for i := range p.fns {
		b.WriteByte('\n')
		ex, ey := p.fns[i].Variation.WGSL()
		writeFunction(&b, p.fns[i].Name, p.coeffs[i], ex, ey)
	}

	b.WriteString("\nfn select_function(r: f32) -> u32 {\n")
	for i, c := range p.cdf[:len(p.cdf)-1] {
		fmt.Fprintf(&b, "    if (r < %s) {\n        return %du;\n    }\n", lit(c), i)
	}
	fmt.Fprintf(&b, "    return %du;\n}\n", len(p.cdf)-1)

	b.WriteString(plotWGSL)

	fmt.Fprintf(&b, "\n@compute @workgroup_size(%d, %d, 1)\n", workgroupEdge, workgroupEdge)
	b.WriteString(`fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= u.resolution || gid.y >= u.resolution) {
        return;
    }
    rng_state = seed_walker(u.rng_seed, gid.x, gid.y);
    var p = vec2<f32>(rand() * 2.0 - 1.0, rand() * 2.0 - 1.0);
    for (var step = 0u; step < ITERATIONS; step = step + 1u) {
        let k = select_function(rand());
        var c = vec3<u32>(0u, 0u, 0u);
        switch k {
`)
	for i := range p.fns {
		col := p.fns[i].Color
		label := fmt.Sprintf("case %du", i)
		if i == len(p.fns)-1 {
			label = "default"
		}
		fmt.Fprintf(&b, "            %s: {\n                p = %s(p);\n                c = vec3<u32>(%du, %du, %du);\n            }\n",
			label, p.fns[i].Name, col.R, col.G, col.B)
	}
	b.WriteString(`        }
        if (step >= WARMUP) {
            plot(p, c);
        }
    }
}
`)
	return b.String()
}

func writeFunction(b *strings.Builder, name string, c [6]float32, ex, ey string) {
	fmt.Fprintf(b, "fn %s(p: vec2<f32>) -> vec2<f32> {\n", name)
	fmt.Fprintf(b, "    let x = %s * p.x + %s * p.y + %s;\n", lit(c[0]), lit(c[1]), lit(c[2]))
	fmt.Fprintf(b, "    let y = %s * p.x + %s * p.y + %s;\n", lit(c[3]), lit(c[4]), lit(c[5]))
	b.WriteString("    let r = sqrt(x * x + y * y);\n")
	b.WriteString("    let theta = atan2(x, y);\n")
	fmt.Fprintf(b, "    return vec2<f32>(%s, %s);\n}\n", ex, ey)
}

// lit formats v as an f32 literal that round-trips exactly.
func lit(v float32) string {
	s := strconv.FormatFloat(float64(v), 'g', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	if v < 0 {
		return "(" + s + ")"
	}
	return s
}

// plotWGSL projects a point through the camera and bins it. NaN fails
// every comparison, so non-finite points fall through the bounds check.
// Each histogram channel is a lo/hi word pair; the adder whose atomicAdd
// wraps the low word carries into the high word.
const plotWGSL = `
fn add_wide(i: u32, v: u32) {
    let old = atomicAdd(&hist[i], v);
    if (old > 0xffffffffu - v) {
        atomicAdd(&hist[i + 1u], 1u);
    }
}

fn plot(p: vec2<f32>, c: vec3<u32>) {
    let scale = exp2(u.log_scale);
    let fx = floor((p.x * scale + u.x_offset + 1.0) * 0.5 * f32(u.width));
    let fy = floor((p.y * scale + u.y_offset + 1.0) * 0.5 * f32(u.height));
    if (!(fx >= 0.0 && fx < f32(u.width) && fy >= 0.0 && fy < f32(u.height))) {
        return;
    }
    let i = (u32(fy) * u.width + u32(fx)) * 8u;
    add_wide(i, 1u);
    add_wide(i + 2u, c.x);
    add_wide(i + 4u, c.y);
    add_wide(i + 6u, c.z);
}
`
