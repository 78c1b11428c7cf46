package preview

import (
	"fmt"
	"strconv"
	"strings"
)

// Options is what a user picks in either front end before generating.
type Options struct {
	Background  string
	AspectRatio AspectRatio
}

func DefaultOptions() Options {
	return Options{
		Background:  DefaultBackground().Key,
		AspectRatio: DefaultAspectRatio,
	}
}

// BuildInstruction composes the text part sent with the model and product images
// for one pose. The model image must be attached first, the product image second.
func BuildInstruction(pose, background string, ratio AspectRatio) string {
	var b strings.Builder
	b.Grow(2048)

	b.WriteString("Hasilkan satu gambar tunggal yang fotorealistis dan berkualitas promosi.\n\n")

	b.WriteString(fmt.Sprintf("**Perintah Utama: Rasio aspek gambar keluaran HARUS %s. Ini adalah persyaratan yang ketat dan tidak dapat dinegosiasikan.**\n\n", ratio.Description()))

	b.WriteString("**Konten Gambar:**\n")
	writeSection(&b, []string{
		"**Orang:** Harus orang yang *sama persis* dari gambar masukan pertama.",
		"**Produk Pajangan:** Harus *produk pajangan yang sama persis* dari gambar masukan kedua. Jika produk tersebut adalah kaligrafi (misalnya lafaz Allah atau Muhammad) atau vas bunga, setiap detail, tulisan, lekukan, dan warna harus direplikasi dengan **presisi mutlak**.",
		"**Aksi:** Orang tersebut sedang " + strings.TrimSpace(pose),
		"**Latar Belakang:** Pengaturannya adalah **" + strings.TrimSpace(background) + "**.",
	})
	b.WriteString("\n")

	b.WriteString("**Gaya Artistik & Batasan:**\n")
	writeSection(&b, []string{
		"**Replikasi Produk Akurat (ATURAN PALING PENTING):** Prioritas tertinggi adalah replikasi produk pajangan dari gambar kedua dengan sangat akurat. Produk **TIDAK BOLEH** diinterpretasikan ulang, diubah, atau didistorsi. Salin setiap detailnya seolah-olah itu adalah salinan foto yang sempurna. Ini sangat penting untuk kaligrafi atau desain yang rumit.",
		"**Akurasi Anatomi:** Tangan model harus digambar secara akurat dan realistis. Hindari anomali seperti jari tambahan, bentuk yang aneh, atau proporsi yang tidak wajar. Pastikan tangan terlihat alami saat memegang atau berinteraksi dengan produk.",
		"**Realisme:** Ciptakan pencahayaan profesional dan bersih yang cocok untuk iklan, membuat suasana yang menarik dan menonjolkan produk.",
		"**Konsistensi:** Pertahankan penampilan persis orang dan produk pajangan dari gambar sumber.",
		"**Kualitas:** Gambar akhir harus beresolusi tinggi dan cocok untuk penggunaan promosi profesional.",
		"**Format:** Hanya keluarkan data gambar.",
	})

	return strings.TrimSpace(b.String())
}

// ParseArgs reads "/promo" command arguments: an aspect ratio ("16:9", "ar=1:1")
// and/or a 1-based background number ("bg=12").
func ParseArgs(raw string, defaults Options) Options {
	opts := defaults
	for _, tok := range strings.Fields(strings.ToLower(raw)) {
		tok = strings.TrimPrefix(tok, "ar=")
		tok = strings.TrimPrefix(tok, "aspect=")

		if strings.HasPrefix(tok, "bg=") {
			n, err := strconv.Atoi(strings.TrimPrefix(tok, "bg="))
			if err != nil {
				continue
			}
			if bg, ok := BackgroundByIndex(n - 1); ok {
				opts.Background = bg.Key
			}
			continue
		}

		if strings.Contains(tok, ":") {
			if ratio, err := ParseAspectRatio(tok); err == nil {
				opts.AspectRatio = ratio
			}
		}
	}
	return opts
}

func writeSection(b *strings.Builder, lines []string) {
	for _, line := range lines {
		b.WriteString("- " + line + "\n")
	}
}
