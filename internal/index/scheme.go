package index

var (
	bMeta      = []byte("meta")       // slug -> metaBytes
	bAlias     = []byte("alias")      // old -> newSlug
	bShort     = []byte("short")      // shortID -> slug
	bIdxTag    = []byte("idx_tag")    // tag -> sub-bucket
	bIdxFolder = []byte("idx_folder") // folder -> sub-bucket

	bIdxUpdated = []byte("idx_updated")
	bIdxCreated = []byte("idx_created")

	// 链接图谱：改写阶段收集的出链 + 重建时算出的反链
	bOutLinks  = []byte("outlinks")  // slug -> json []slug
	bBackLinks = []byte("backlinks") // slug -> json []slug

	bBuild = []byte("build") // 构建指纹等元信息
)

var keyFingerprint = []byte("fingerprint")
