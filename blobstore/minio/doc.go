// Package minio stores term dictionary segments in MinIO or another
// S3-compatible service (Ceph, Garage, SeaweedFS) through the MinIO client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "dicts", "segments/")
//	r, err := termdict.Open(ctx, store, "seg-0001.tdct")
//
// The package has no AWS SDK dependency.
package minio
