package handlers

const (
	textStart = "📸 Pajangan Promoshot\n\n" +
		"Buat 6 foto promosi dari satu foto model dan satu foto produk pajangan.\n\n" +
		"Perintah:\n" +
		"/promo - Mulai membuat foto promosi\n" +
		"/help - Bantuan\n" +
		"/cancel - Batalkan dan hapus foto"

	textHelp = "📸 Bantuan\n\n" +
		"1. Ketik /promo.\n" +
		"2. Kirim foto model, lalu foto produk (atau keduanya sekaligus sebagai album, model dulu).\n" +
		"3. Pilih latar dan rasio aspek.\n" +
		"4. Tekan \"Buat 6 Gambar\".\n\n" +
		"Opsi cepat: /promo 16:9 bg=12"

	textCanceled        = "✅ Dibatalkan. Ketik /promo untuk mulai lagi."
	textUnknownCommand  = "❌ Perintah tidak dikenal. Gunakan /help."
	textSendPhotos      = "📷 Kirim foto model dan foto produk, atau ketik /promo."
	textExtraPhotos     = "ℹ️ Hanya dua foto pertama yang dipakai: model lalu produk."
	textNotYourMenu     = "Menu ini bukan untuk Anda."
	textSendPhotoNow    = "Kirim fotonya sekarang."
	textBusy            = "Gambar sedang dibuat, tunggu sebentar."
	textNeedPhotos      = "Unggah foto model dan foto produk terlebih dahulu."
	textGenerating      = "Membuat gambar…"
	textGeneratingLong  = "🎨 Membuat %d gambar (%s, %s), mohon tunggu..."
	textDownloadFailed  = "❌ Gagal mengunduh foto. Kirim ulang fotonya."
	textTimeout         = "❌ Waktu habis saat membuat gambar. Coba lagi."
	textGenerationFailed = "❌ Gagal membuat gambar. Silakan coba lagi."
	textDone            = "✅ Selesai! %d gambar · %s · %s"
)
